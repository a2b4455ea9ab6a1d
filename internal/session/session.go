// Package session implements the timed drill state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/verte-zerg/sprint/internal/generator"
	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/settings"
)

// ErrSessionRunning is returned for actions that require an idle session.
var ErrSessionRunning = errors.New("session is running")

// State is the controller state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ProblemSource issues the next problem for the settings, updating used.
type ProblemSource interface {
	Next(s model.Settings, used generator.Used) (model.Problem, error)
}

// Recorder receives sessions that ran to completion.
type Recorder interface {
	InsertSession(ctx context.Context, res model.SessionResult) error
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State            State
	Settings         model.Settings
	SecondsRemaining int
	Attempts         int
	Correct          int
	Problem          model.Problem
	ProblemSeq       int
	Epoch            int
	LastAttempt      *model.Attempt
}

// Running reports whether the countdown is active.
func (s Snapshot) Running() bool { return s.State == StateRunning }

// Done reports whether the session ran to completion.
func (s Snapshot) Done() bool { return s.State == StateDone }

// Controller owns settings, countdown, tally and history of one drill.
type Controller struct {
	store    settings.Store
	gen      ProblemSource
	recorder Recorder
	log      lgr.L
	now      func() time.Time

	settings         model.Settings
	state            State
	secondsRemaining int
	attempts         int
	correct          int
	history          []model.Attempt
	used             generator.Used
	problem          model.Problem
	problemSeq       int
	epoch            int
	startedAt        time.Time
	sessionID        string
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder stores completed sessions.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger used for best-effort persistence failures.
func WithLogger(l lgr.L) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController loads settings from st and returns an idle controller.
// Load errors are logged and the defaults used.
func NewController(ctx context.Context, st settings.Store, gen ProblemSource, opts ...Option) *Controller {
	c := &Controller{
		store: st,
		gen:   gen,
		log:   lgr.NoOp,
		now:   time.Now,
		used:  generator.Used{},
	}
	for _, opt := range opts {
		opt(c)
	}
	loaded, err := st.Load(ctx)
	if err != nil {
		c.log.Logf("[WARN] failed to load settings, using defaults: %v", err)
	}
	c.settings = loaded
	c.secondsRemaining = loaded.TotalSeconds()
	return c
}

// Settings returns the current settings.
func (c *Controller) Settings() model.Settings { return c.settings }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// History returns a copy of the attempts made in the current session.
func (c *Controller) History() []model.Attempt {
	out := make([]model.Attempt, len(c.history))
	copy(out, c.history)
	return out
}

// Snapshot returns a copy of the state for rendering.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		State:            c.state,
		Settings:         c.settings,
		SecondsRemaining: c.secondsRemaining,
		Attempts:         c.attempts,
		Correct:          c.correct,
		Problem:          c.problem,
		ProblemSeq:       c.problemSeq,
		Epoch:            c.epoch,
	}
	if n := len(c.history); n > 0 {
		last := c.history[n-1]
		snap.LastAttempt = &last
	}
	return snap
}

// SetTimeLimit updates the time limit in minutes.
func (c *Controller) SetTimeLimit(ctx context.Context, minutes int) error {
	return c.update(ctx, func(s *model.Settings) { s.TimeLimitMinutes = minutes })
}

// SetMinFactor updates the lower factor bound.
func (c *Controller) SetMinFactor(ctx context.Context, v int) error {
	return c.update(ctx, func(s *model.Settings) { s.MinFactor = v })
}

// SetMaxFactor updates the upper factor bound.
func (c *Controller) SetMaxFactor(ctx context.Context, v int) error {
	return c.update(ctx, func(s *model.Settings) { s.MaxFactor = v })
}

// SetNoDuplicates toggles repeat avoidance.
func (c *Controller) SetNoDuplicates(ctx context.Context, v bool) error {
	return c.update(ctx, func(s *model.Settings) { s.NoDuplicates = v })
}

// ApplySettings replaces all four settings at once.
func (c *Controller) ApplySettings(ctx context.Context, s model.Settings) error {
	return c.update(ctx, func(cur *model.Settings) { *cur = s })
}

// update applies fn while not running and persists all four values.
// Values are not range-checked here; Start validates them.
func (c *Controller) update(ctx context.Context, fn func(*model.Settings)) error {
	if c.state == StateRunning {
		return ErrSessionRunning
	}
	fn(&c.settings)
	if c.state == StateIdle {
		c.secondsRemaining = c.settings.TotalSeconds()
	}
	if err := c.store.Save(ctx, c.settings); err != nil {
		c.log.Logf("[WARN] failed to save settings: %v", err)
	}
	return nil
}

// Start begins a new session from Idle or Done.
func (c *Controller) Start() error {
	if c.state == StateRunning {
		return ErrSessionRunning
	}
	if err := c.settings.Validate(); err != nil {
		return err
	}
	c.clearTally()
	c.secondsRemaining = c.settings.TotalSeconds()
	c.startedAt = c.now()
	c.sessionID = uuid.NewString()
	c.epoch++
	if err := c.issueProblem(); err != nil {
		return err
	}
	c.state = StateRunning
	c.log.Logf("[DEBUG] session %s started: %d min, factors %d-%d, no duplicates %v",
		c.sessionID, c.settings.TimeLimitMinutes, c.settings.MinFactor, c.settings.MaxFactor, c.settings.NoDuplicates)
	return nil
}

// Tick advances the countdown by one second. Ticks from an earlier epoch or
// outside a running session are ignored. It reports whether another tick
// should be scheduled.
func (c *Controller) Tick(ctx context.Context, epoch int) bool {
	if c.state != StateRunning || epoch != c.epoch {
		return false
	}
	if c.secondsRemaining <= 1 {
		c.secondsRemaining = 0
		c.finish(ctx)
		return false
	}
	c.secondsRemaining--
	return true
}

// Submit scores input against the current problem and issues the next one.
// It is a no-op unless running.
func (c *Controller) Submit(input string) (model.Attempt, bool) {
	if c.state != StateRunning {
		return model.Attempt{}, false
	}
	input = strings.TrimSpace(input)
	answer, err := strconv.Atoi(input)
	correct := err == nil && answer == c.problem.Product()

	attempt := model.Attempt{
		Problem:    c.problem,
		Input:      input,
		Correct:    correct,
		AnsweredAt: c.now(),
	}
	c.attempts++
	if correct {
		c.correct++
	}
	c.history = append(c.history, attempt)

	if err := c.issueProblem(); err != nil {
		c.log.Logf("[WARN] failed to issue next problem: %v", err)
	}
	return attempt, true
}

// Reset abandons a running session and returns to Idle.
func (c *Controller) Reset() bool {
	if c.state != StateRunning {
		return false
	}
	c.epoch++
	c.clearTally()
	c.secondsRemaining = c.settings.TotalSeconds()
	c.problem = model.Problem{}
	c.problemSeq++
	c.state = StateIdle
	c.log.Logf("[DEBUG] session %s reset", c.sessionID)
	return true
}

// Result returns the current session as a SessionResult.
func (c *Controller) Result() model.SessionResult {
	return model.SessionResult{
		ID:        c.sessionID,
		StartedAt: c.startedAt,
		EndedAt:   c.now(),
		Settings:  c.settings,
		Attempts:  c.attempts,
		Correct:   c.correct,
		History:   c.History(),
	}
}

func (c *Controller) finish(ctx context.Context) {
	c.state = StateDone
	c.epoch++
	c.log.Logf("[INFO] session %s complete: %d/%d correct", c.sessionID, c.correct, c.attempts)
	if c.recorder == nil {
		return
	}
	if err := c.recorder.InsertSession(ctx, c.Result()); err != nil {
		c.log.Logf("[WARN] failed to record session: %v", err)
	}
}

func (c *Controller) clearTally() {
	c.attempts = 0
	c.correct = 0
	c.history = nil
	c.used.Reset()
}

func (c *Controller) issueProblem() error {
	p, err := c.gen.Next(c.settings, c.used)
	if err != nil {
		return err
	}
	c.problem = p
	c.problemSeq++
	return nil
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
