package session

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sprint/internal/generator"
	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/settings"
)

// fixedSource always issues the same problem.
type fixedSource struct {
	p     model.Problem
	calls int
}

func (f *fixedSource) Next(model.Settings, generator.Used) (model.Problem, error) {
	f.calls++
	return f.p, nil
}

type memRecorder struct {
	results []model.SessionResult
	err     error
}

func (r *memRecorder) InsertSession(_ context.Context, res model.SessionResult) error {
	r.results = append(r.results, res)
	return r.err
}

type countingStore struct {
	settings.Store
	saves int
	err   error
}

func (s *countingStore) Save(ctx context.Context, st model.Settings) error {
	s.saves++
	if s.err != nil {
		return s.err
	}
	return s.Store.Save(ctx, st)
}

func newController(t *testing.T, s model.Settings, src ProblemSource, opts ...Option) (*Controller, *countingStore) {
	t.Helper()
	st := &countingStore{Store: settings.NewKVStore(settings.NewMemoryKV())}
	require.NoError(t, st.Store.Save(context.Background(), s))
	return NewController(context.Background(), st, src, opts...), st
}

func TestNewControllerLoadsSettings(t *testing.T) {
	want := model.Settings{TimeLimitMinutes: 2, MinFactor: 3, MaxFactor: 4, NoDuplicates: false}
	c, _ := newController(t, want, generator.NewWithSeed(1))
	assert.Equal(t, want, c.Settings())
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 120, snap.SecondsRemaining)
}

func TestSubmitIncorrectAnswer(t *testing.T) {
	c, _ := newController(t, model.DefaultSettings(), &fixedSource{p: model.Problem{A: 2, B: 3}})
	require.NoError(t, c.Start())

	attempt, ok := c.Submit("7")
	require.True(t, ok)
	assert.False(t, attempt.Correct)
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, 0, snap.Correct)

	attempt, ok = c.Submit(" 6 ")
	require.True(t, ok)
	assert.True(t, attempt.Correct)
	assert.Equal(t, "6", attempt.Input)
	snap = c.Snapshot()
	assert.Equal(t, 2, snap.Attempts)
	assert.Equal(t, 1, snap.Correct)
	require.Len(t, c.History(), 2)
	assert.Equal(t, model.Problem{A: 2, B: 3}, c.History()[0].Problem)
}

func TestSubmitNonNumericIsIncorrect(t *testing.T) {
	c, _ := newController(t, model.DefaultSettings(), &fixedSource{p: model.Problem{A: 0, B: 0}})
	require.NoError(t, c.Start())
	for _, in := range []string{"", "abc", "0x0", "1e1"} {
		attempt, ok := c.Submit(in)
		require.True(t, ok)
		assert.False(t, attempt.Correct, in)
	}
	snap := c.Snapshot()
	assert.Equal(t, 4, snap.Attempts)
	assert.Equal(t, 0, snap.Correct)
}

func TestCorrectNeverExceedsAttempts(t *testing.T) {
	gen := generator.NewWithSeed(11)
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 0, MaxFactor: 3, NoDuplicates: true}, gen)
	require.NoError(t, c.Start())
	for i := 0; i < 50; i++ {
		snap := c.Snapshot()
		input := "99"
		if i%2 == 0 {
			input = strconv.Itoa(snap.Problem.Product())
		}
		c.Submit(input)
		snap = c.Snapshot()
		require.GreaterOrEqual(t, snap.Correct, 0)
		require.LessOrEqual(t, snap.Correct, snap.Attempts)
	}
}

func TestSubmitWhileIdleIsNoOp(t *testing.T) {
	src := &fixedSource{p: model.Problem{A: 2, B: 2}}
	c, _ := newController(t, model.DefaultSettings(), src)
	_, ok := c.Submit("4")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Snapshot().Attempts)
	assert.Equal(t, 0, src.calls)
}

func TestCountdownCompletesAfterFullDuration(t *testing.T) {
	rec := &memRecorder{}
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 1, MaxFactor: 6, NoDuplicates: true},
		generator.NewWithSeed(2), WithRecorder(rec))
	require.NoError(t, c.Start())
	epoch := c.Snapshot().Epoch

	prev := c.Snapshot().SecondsRemaining
	for i := 1; i <= 60; i++ {
		more := c.Tick(context.Background(), epoch)
		snap := c.Snapshot()
		require.LessOrEqual(t, snap.SecondsRemaining, prev)
		prev = snap.SecondsRemaining
		if i < 60 {
			require.True(t, more, "tick %d", i)
			require.True(t, snap.Running())
		} else {
			require.False(t, more)
		}
	}

	snap := c.Snapshot()
	assert.True(t, snap.Done())
	assert.False(t, snap.Running())
	assert.Equal(t, 0, snap.SecondsRemaining)
	require.Len(t, rec.results, 1)

	// extra ticks neither rewind the clock nor complete the session again
	assert.False(t, c.Tick(context.Background(), epoch))
	assert.False(t, c.Tick(context.Background(), snap.Epoch))
	assert.Equal(t, 0, c.Snapshot().SecondsRemaining)
	assert.Len(t, rec.results, 1)
}

func TestStaleTicksAreIgnored(t *testing.T) {
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 1, MaxFactor: 3, NoDuplicates: true}, generator.NewWithSeed(4))
	require.NoError(t, c.Start())
	old := c.Snapshot().Epoch
	require.True(t, c.Reset())
	require.NoError(t, c.Start())

	assert.False(t, c.Tick(context.Background(), old))
	assert.Equal(t, 60, c.Snapshot().SecondsRemaining)
	assert.True(t, c.Tick(context.Background(), c.Snapshot().Epoch))
	assert.Equal(t, 59, c.Snapshot().SecondsRemaining)
}

func TestResetDuringRunningSession(t *testing.T) {
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 2, MinFactor: 1, MaxFactor: 6, NoDuplicates: true}, &fixedSource{p: model.Problem{A: 3, B: 3}})
	require.NoError(t, c.Start())
	c.Submit("9")
	c.Submit("8")
	c.Submit("9")
	epoch := c.Snapshot().Epoch
	for i := 0; i < 10; i++ {
		c.Tick(context.Background(), epoch)
	}
	require.Equal(t, 3, c.Snapshot().Attempts)

	require.True(t, c.Reset())
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 0, snap.Attempts)
	assert.Equal(t, 0, snap.Correct)
	assert.Empty(t, c.History())
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.False(t, c.Tick(context.Background(), epoch))

	assert.False(t, c.Reset(), "reset from idle")
}

func TestStartRejectsInvalidSettings(t *testing.T) {
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 7, MaxFactor: 3, NoDuplicates: true}, generator.NewWithSeed(1))
	err := c.Start()
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, c.SetTimeLimit(context.Background(), 0))
	require.NoError(t, c.SetMinFactor(context.Background(), 1))
	err = c.Start()
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "time limit", cfgErr.Field)
}

func TestStartWhileRunning(t *testing.T) {
	c, _ := newController(t, model.DefaultSettings(), generator.NewWithSeed(1))
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrSessionRunning)
}

func TestRestartFromDone(t *testing.T) {
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 2, MaxFactor: 2, NoDuplicates: true}, generator.NewWithSeed(1))
	require.NoError(t, c.Start())
	c.Submit("4")
	epoch := c.Snapshot().Epoch
	for c.Tick(context.Background(), epoch) {
	}
	require.True(t, c.Snapshot().Done())
	assert.Equal(t, 1, c.Snapshot().Attempts)

	require.NoError(t, c.Start())
	snap := c.Snapshot()
	assert.True(t, snap.Running())
	assert.Equal(t, 0, snap.Attempts)
	assert.Equal(t, 60, snap.SecondsRemaining)
	assert.Empty(t, c.History())
}

func TestSettingsPersistOnEverySet(t *testing.T) {
	c, st := newController(t, model.DefaultSettings(), generator.NewWithSeed(1))
	ctx := context.Background()

	require.NoError(t, c.SetTimeLimit(ctx, 3))
	require.NoError(t, c.SetMinFactor(ctx, 2))
	require.NoError(t, c.SetMaxFactor(ctx, 9))
	require.NoError(t, c.SetNoDuplicates(ctx, false))
	assert.Equal(t, 4, st.saves)
	assert.Equal(t, 180, c.Snapshot().SecondsRemaining)

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Settings{TimeLimitMinutes: 3, MinFactor: 2, MaxFactor: 9, NoDuplicates: false}, loaded)

	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.SetMaxFactor(ctx, 12), ErrSessionRunning)
	assert.Equal(t, 9, c.Settings().MaxFactor)
	assert.Equal(t, 4, st.saves)
}

func TestSaveFailureIsNotPropagated(t *testing.T) {
	c, st := newController(t, model.DefaultSettings(), generator.NewWithSeed(1))
	st.err = errors.New("read-only")
	require.NoError(t, c.SetMaxFactor(context.Background(), 8))
	assert.Equal(t, 8, c.Settings().MaxFactor)
}

func TestRecorderReceivesResult(t *testing.T) {
	rec := &memRecorder{err: errors.New("locked")}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, _ := newController(t, model.Settings{TimeLimitMinutes: 1, MinFactor: 2, MaxFactor: 3, NoDuplicates: true},
		&fixedSource{p: model.Problem{A: 2, B: 3}}, WithRecorder(rec), WithClock(func() time.Time { return now }))
	require.NoError(t, c.Start())
	c.Submit("6")
	c.Submit("5")
	epoch := c.Snapshot().Epoch
	for c.Tick(context.Background(), epoch) {
	}

	require.Len(t, rec.results, 1)
	res := rec.results[0]
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, res.Correct)
	assert.Len(t, res.History, 2)
	assert.Equal(t, now, res.StartedAt)
	assert.True(t, c.Snapshot().Done(), "recorder error must not affect state")
}

func TestProblemSeqAdvancesOnEveryIssue(t *testing.T) {
	c, _ := newController(t, model.DefaultSettings(), generator.NewWithSeed(1))
	seq := c.Snapshot().ProblemSeq
	require.NoError(t, c.Start())
	assert.Equal(t, seq+1, c.Snapshot().ProblemSeq)
	c.Submit("1")
	assert.Equal(t, seq+2, c.Snapshot().ProblemSeq)
	c.Reset()
	assert.Equal(t, seq+3, c.Snapshot().ProblemSeq)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "10:00", FormatClock(600))
	assert.Equal(t, "00:59", FormatClock(59))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "00:00", FormatClock(-3))
	assert.Equal(t, "60:00", FormatClock(3600))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "done", StateDone.String())
}
