// Package tui provides the Bubble Tea drill interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-pkgz/lgr"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/report"
	"github.com/verte-zerg/sprint/internal/session"
)

const (
	fieldTimeLimit = iota
	fieldMinFactor
	fieldMaxFactor
	fieldNoDuplicates
	fieldCount
)

// tickMsg carries the controller epoch it was scheduled for.
type tickMsg struct {
	epoch int
}

// Model implements the Bubble Tea drill UI.
type Model struct {
	ctrl      *session.Controller
	reportDir string
	open      func(path string) error
	log       lgr.L
	now       func() time.Time

	width  int
	height int

	fields  []textinput.Model
	focus   int
	answer  textinput.Model
	seenSeq int

	errMsg string
	notice string
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	focusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	lockedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	clockStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	problemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	panelStyle     = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// Option configures a Model.
type Option func(*Model)

// WithOpener replaces the function used to open printable reports.
func WithOpener(open func(path string) error) Option {
	return func(m *Model) { m.open = open }
}

// WithLogger sets the logger for best-effort failures.
func WithLogger(l lgr.L) Option {
	return func(m *Model) { m.log = l }
}

// NewModel constructs a drill TUI model around ctrl.
func NewModel(ctrl *session.Controller, reportDir string, opts ...Option) *Model {
	m := &Model{
		ctrl:      ctrl,
		reportDir: reportDir,
		open:      report.Open,
		log:       lgr.NoOp,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	s := ctrl.Settings()
	m.fields = []textinput.Model{
		newNumberInput(s.TimeLimitMinutes),
		newNumberInput(s.MinFactor),
		newNumberInput(s.MaxFactor),
	}
	m.answer = textinput.New()
	m.answer.Prompt = ""
	m.answer.CharLimit = 4
	m.answer.Placeholder = "?"
	m.seenSeq = ctrl.Snapshot().ProblemSeq
	m.setFocus(fieldTimeLimit)
	return m
}

func newNumberInput(v int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 2
	ti.Width = 3
	ti.SetValue(strconv.Itoa(v))
	return ti
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.ctrl.Tick(context.Background(), msg.epoch) {
			return m, tickCmd(msg.epoch)
		}
		m.syncInputs()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.ctrl.State() == session.StateRunning {
			return m.updateRunning(msg)
		}
		return m.updateSettings(msg)
	default:
		return m, nil
	}
}

func (m *Model) updateRunning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.ctrl.Submit(m.answer.Value())
		m.syncInputs()
		return m, nil
	case tea.KeyEsc:
		m.ctrl.Reset()
		m.syncInputs()
		return m, nil
	}
	if !digitsOnly(msg) {
		return m, nil
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	return m, cmd
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.start()
	case tea.KeyTab, tea.KeyDown:
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case tea.KeySpace:
		if m.focus == fieldNoDuplicates {
			m.setErr(m.ctrl.SetNoDuplicates(context.Background(), !m.ctrl.Settings().NoDuplicates))
		}
		return m, nil
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return m, tea.Quit
		case "p":
			if m.ctrl.State() == session.StateDone {
				m.printReport()
			}
			return m, nil
		}
	}
	if m.focus == fieldNoDuplicates || !digitsOnly(msg) {
		return m, nil
	}
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	m.commitField(m.focus)
	return m, cmd
}

func (m *Model) start() (tea.Model, tea.Cmd) {
	if err := m.ctrl.Start(); err != nil {
		m.setErr(err)
		return m, nil
	}
	m.errMsg = ""
	m.notice = ""
	m.syncInputs()
	return m, tea.Batch(tickCmd(m.ctrl.Snapshot().Epoch), m.answer.Focus())
}

// commitField pushes a parsable field value into the controller.
func (m *Model) commitField(idx int) {
	n, err := strconv.Atoi(strings.TrimSpace(m.fields[idx].Value()))
	if err != nil {
		return
	}
	ctx := context.Background()
	switch idx {
	case fieldTimeLimit:
		err = m.ctrl.SetTimeLimit(ctx, n)
	case fieldMinFactor:
		err = m.ctrl.SetMinFactor(ctx, n)
	case fieldMaxFactor:
		err = m.ctrl.SetMaxFactor(ctx, n)
	}
	m.setErr(err)
}

func (m *Model) setErr(err error) {
	if err == nil {
		m.errMsg = ""
		return
	}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) {
		m.errMsg = "Cannot start: " + cfgErr.Error()
		return
	}
	m.errMsg = err.Error()
}

func (m *Model) setFocus(idx int) {
	m.focus = idx
	for i := range m.fields {
		if i == idx {
			m.fields[i].Focus()
			continue
		}
		m.fields[i].Blur()
	}
}

// syncInputs clears the answer whenever a new problem was issued and moves
// focus between the answer and the settings fields.
func (m *Model) syncInputs() {
	snap := m.ctrl.Snapshot()
	if snap.ProblemSeq != m.seenSeq {
		m.answer.Reset()
		m.seenSeq = snap.ProblemSeq
	}
	if snap.Running() {
		m.answer.Focus()
		for i := range m.fields {
			m.fields[i].Blur()
		}
		return
	}
	m.answer.Blur()
	m.setFocus(m.focus)
}

func (m *Model) printReport() {
	snap := m.ctrl.Snapshot()
	sum := report.Build(snap.Settings, snap.Attempts, snap.Correct, m.ctrl.History())
	path, err := report.WritePrintable(m.reportDir, sum, m.now())
	if err != nil {
		m.log.Logf("[WARN] %v", err)
		m.errMsg = err.Error()
		return
	}
	m.notice = "Report saved to " + path
	if err := m.open(path); err != nil {
		m.log.Logf("[WARN] %v", err)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	snap := m.ctrl.Snapshot()
	sections := []string{
		titleStyle.Render("Multiplication Sprint"),
		"",
		m.renderSettings(snap),
		"",
		clockStyle.Render(session.FormatClock(snap.SecondsRemaining)),
		"",
	}
	switch snap.State {
	case session.StateRunning:
		sections = append(sections, m.renderProblem(snap))
	case session.StateDone:
		sections = append(sections, renderComplete(snap))
	}
	if m.errMsg != "" {
		sections = append(sections, "", incorrectStyle.Render(m.errMsg))
	}
	if m.notice != "" {
		sections = append(sections, "", labelStyle.Render(m.notice))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)

	footer := m.renderFooter(snap)
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderSettings(snap session.Snapshot) string {
	labels := []string{"Time Limit (minutes):", "Min Factor:", "Max Factor:"}
	parts := make([]string, 0, fieldCount)
	for i, label := range labels {
		parts = append(parts, m.styleLabel(i, snap, label)+" "+m.fields[i].View())
	}
	box := "[ ]"
	if snap.Settings.NoDuplicates {
		box = "[x]"
	}
	parts = append(parts, m.styleLabel(fieldNoDuplicates, snap, box+" No Duplicates"))
	return strings.Join(parts, "   ")
}

func (m *Model) styleLabel(idx int, snap session.Snapshot, label string) string {
	switch {
	case snap.Running():
		return lockedStyle.Render(label)
	case idx == m.focus:
		return focusStyle.Render(label)
	default:
		return labelStyle.Render(label)
	}
}

func (m *Model) renderProblem(snap session.Snapshot) string {
	lines := []string{
		problemStyle.Render(fmt.Sprintf("%d × %d = ?", snap.Problem.A, snap.Problem.B)),
		"",
		"> " + m.answer.View(),
	}
	if last := snap.LastAttempt; last != nil {
		style := incorrectStyle
		if last.Correct {
			style = correctStyle
		}
		lines = append(lines, "", style.Render(report.Line(*last)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func renderComplete(snap session.Snapshot) string {
	lines := []string{
		titleStyle.Render("Session Complete"),
		fmt.Sprintf("Total Attempts: %d", snap.Attempts),
		fmt.Sprintf("Correct: %d", snap.Correct),
		fmt.Sprintf("Accuracy: %s%%", report.FormatAccuracy(snap.Correct, snap.Attempts)),
		fmt.Sprintf("Factor Range: %d – %d", snap.Settings.MinFactor, snap.Settings.MaxFactor),
		fmt.Sprintf("No Duplicates: %s", report.YesNo(snap.Settings.NoDuplicates)),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter(snap session.Snapshot) string {
	var segments []string
	switch snap.State {
	case session.StateRunning:
		segments = []string{
			fmt.Sprintf("Score %d/%d", snap.Correct, snap.Attempts),
			"enter submit",
			"esc reset",
		}
	case session.StateDone:
		segments = []string{"enter start again", "p print report", "tab next field", "q quit"}
	default:
		segments = []string{"enter start", "tab next field", "space toggle", "q quit"}
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func digitsOnly(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight, tea.KeyHome, tea.KeyEnd:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return false
			}
		}
		return len(msg.Runes) > 0
	default:
		return false
	}
}

func tickCmd(epoch int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{epoch: epoch}
	})
}
