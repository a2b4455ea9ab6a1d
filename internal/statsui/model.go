// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/stats"
)

const (
	tabOverview = iota
	tabFacts
)

const maxCurveWindow = 50

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	src     stats.Source
	cfg     model.StatsConfig
	window  int
	weakTop int

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	factTable table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model and loads the report from src.
func NewModel(src stats.Source, cfg model.StatsConfig, window, weakTop int) *Model {
	m := &Model{
		src:       src,
		cfg:       cfg,
		window:    clampWindow(window),
		weakTop:   weakTop,
		tabs:      []string{"Overview", "Facts"},
		overview:  viewport.New(0, 0),
		factTable: newFactTable(),
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h", "right", "l", "tab":
			m.toggleTab()
			return m, tea.ClearScreen
		case "=":
			m.window = clampWindow(m.window + 1)
			m.renderOverview()
			return m, nil
		case "-":
			m.window = clampWindow(m.window - 1)
			m.renderOverview()
			return m, nil
		case "g", "home":
			if m.activeTab == tabFacts {
				m.factTable.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabFacts {
				m.factTable.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabFacts {
			m.factTable, cmd = m.factTable.Update(msg)
			return m, cmd
		}
		m.overview, cmd = m.overview.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.factTable.SetWidth(m.width)
	m.factTable.SetHeight(max(1, bodyHeight-1))
}

func (m *Model) toggleTab() {
	m.activeTab = (m.activeTab + 1) % len(m.tabs)
	if m.activeTab == tabFacts {
		m.factTable.Focus()
	} else {
		m.factTable.Blur()
	}
}

func (m *Model) refreshReport() {
	rep, err := stats.BuildReport(context.Background(), m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.overview.SetContent("Failed to load stats.")
		return
	}
	m.errMsg = ""
	m.report = rep
	m.factTable.SetRows(factRows(rep.Facts))
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	m.overview.SetContent(renderOverview(m.report, m.window, m.weakTop, m.width))
}

func renderOverview(rep stats.Report, window, weakTop, width int) string {
	if len(rep.Sessions) == 0 {
		return "No sessions found."
	}
	var buf bytes.Buffer
	if err := stats.RenderAccuracyCurve(&buf, rep.Sessions, window); err != nil {
		return fmt.Sprintf("Failed to render curve: %v", err)
	}
	if err := stats.RenderSessionTable(&buf, rep.Sessions); err != nil {
		return fmt.Sprintf("Failed to render sessions: %v", err)
	}
	if err := stats.RenderFactTable(&buf, rep.Facts, weakTop); err != nil {
		return fmt.Sprintf("Failed to render facts: %v", err)
	}
	cards := renderSummaryCards(rep.Sessions, width)
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(sessions []model.SessionAggregate, width int) string {
	var attempts, correct int
	var totalRate float64
	for _, s := range sessions {
		_, rate := stats.SessionMetrics(s)
		attempts += s.Attempts
		correct += s.Correct
		totalRate += rate
	}
	acc := 0.0
	if attempts > 0 {
		acc = float64(correct) / float64(attempts) * 100
	}
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(sessions))),
		metricCard("Answered", fmt.Sprintf("%d", attempts)),
		metricCard("Accuracy", fmt.Sprintf("%.1f%%", acc)),
		metricCard("Avg/min", fmt.Sprintf("%.1f", totalRate/float64(len(sessions)))),
	}
	if width > 0 && width < 60 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func newFactTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Fact", Width: 9},
			{Title: "Accuracy", Width: 9},
			{Title: "Correct", Width: 8},
			{Title: "Incorrect", Width: 9},
			{Title: "Total", Width: 6},
		}),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.Padding(0, 1).PaddingLeft(0)
	styles.Selected = styles.Cell.Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	t.SetStyles(styles)
	return t
}

// factRows lists every answered fact, lowest accuracy first.
func factRows(aggs []model.FactAggregate) []table.Row {
	sorted := make([]model.FactAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := factAccuracy(sorted[i]), factAccuracy(sorted[j])
		if ai != aj {
			return ai < aj
		}
		ti, tj := sorted[i].Correct+sorted[i].Incorrect, sorted[j].Correct+sorted[j].Incorrect
		if ti != tj {
			return ti > tj
		}
		if sorted[i].A != sorted[j].A {
			return sorted[i].A < sorted[j].A
		}
		return sorted[i].B < sorted[j].B
	})
	rows := make([]table.Row, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d × %d", agg.A, agg.B),
			fmt.Sprintf("%.1f%%", factAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
			fmt.Sprintf("%d", agg.Correct+agg.Incorrect),
		})
	}
	return rows
}

func factAccuracy(agg model.FactAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 0
	}
	return float64(agg.Correct) / float64(total)
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = fmt.Sprintf("%d", m.cfg.Last)
	}
	summary := fmt.Sprintf("Filter: since=%s  last=%s  window=%d", since, last, m.window)
	return m.renderTabs() + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderBody() string {
	if m.activeTab == tabFacts {
		if len(m.report.Facts) == 0 {
			return "No answered problems found."
		}
		return tableMutedStyle.Render(m.factTable.View())
	}
	return m.overview.View()
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func clampWindow(n int) int {
	return min(max(n, 1), maxCurveWindow)
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateLine shortens unstyled text to width cells.
func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
