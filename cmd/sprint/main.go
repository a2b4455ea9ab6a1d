// Package main provides the CLI entrypoint for sprint.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/sprint/internal/config"
	"github.com/verte-zerg/sprint/internal/generator"
	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/report"
	"github.com/verte-zerg/sprint/internal/session"
	"github.com/verte-zerg/sprint/internal/settings"
	"github.com/verte-zerg/sprint/internal/stats"
	"github.com/verte-zerg/sprint/internal/statsui"
	"github.com/verte-zerg/sprint/internal/store"
	"github.com/verte-zerg/sprint/internal/tui"
)

const (
	defaultWeakTop     = 10
	defaultCurveWindow = 5

	maxTimeLimit = 60
	maxFactor    = 12
)

var (
	dbPath    string
	debugMode bool
	noColor   bool

	sprintTime  int
	sprintMin   int
	sprintMax   int
	sprintNoDup bool

	statsSince       string
	statsLast        int
	statsWeakTop     int
	statsCurveWindow int
	statsPlain       bool

	reportID   string
	reportHTML bool
	reportOpen bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sprint",
		Short:         "Timed multiplication drill",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runSprintCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	rootCmd.Flags().IntVar(&sprintTime, "time", model.DefaultTimeLimitMinutes, "time limit in minutes (1-60)")
	rootCmd.Flags().IntVar(&sprintMin, "min", model.DefaultMinFactor, "smallest factor (0-12)")
	rootCmd.Flags().IntVar(&sprintMax, "max", model.DefaultMaxFactor, "largest factor (1-12)")
	rootCmd.Flags().BoolVar(&sprintNoDup, "no-duplicates", model.DefaultNoDuplicates, "avoid repeating a pair until all pairs were asked")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

func runSprintCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logFile, err := openLogFile(config.DefaultLogPath())
	if err != nil {
		logErrf("failed to open log file, logging disabled: %v\n", err)
	}
	var logOut io.Writer = io.Discard
	if logFile != nil {
		logOut = logFile
		defer func() {
			_ = logFile.Close()
		}()
	}
	logger := newLogger(logOut, debugMode, false)

	ctx := cmd.Context()
	var kv settings.KV
	var recorder session.Recorder
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Logf("[WARN] failed to open db %s, settings will not persist: %v", dbPath, err)
		logErrf("failed to open db, running without persistence: %v\n", err)
		kv = settings.NewMemoryKV()
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		kv = st
		recorder = st
	}

	opts := []session.Option{session.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, session.WithRecorder(recorder))
	}
	ctrl := session.NewController(ctx, settings.NewKVStore(kv), generator.New(), opts...)

	resolved := resolveSettings(cmd, ctrl.Settings(), fileCfg.Sprint)
	if err := validateFlags(cmd, resolved); err != nil {
		return err
	}
	if resolved != ctrl.Settings() {
		if err := ctrl.ApplySettings(ctx, resolved); err != nil {
			return fmt.Errorf("failed to apply settings: %w", err)
		}
	}

	m := tui.NewModel(ctrl, config.DefaultReportDir(), tui.WithLogger(logger))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// resolveSettings layers the config file over the persisted settings and
// explicit flags over both.
func resolveSettings(cmd *cobra.Command, persisted model.Settings, fileCfg config.SprintConfig) model.Settings {
	base := fileCfg.Apply(persisted)
	applyIntConfig(cmd, "time", &sprintTime, &base.TimeLimitMinutes)
	applyIntConfig(cmd, "min", &sprintMin, &base.MinFactor)
	applyIntConfig(cmd, "max", &sprintMax, &base.MaxFactor)
	applyBoolConfig(cmd, "no-duplicates", &sprintNoDup, &base.NoDuplicates)
	return model.Settings{
		TimeLimitMinutes: sprintTime,
		MinFactor:        sprintMin,
		MaxFactor:        sprintMax,
		NoDuplicates:     sprintNoDup,
	}
}

func validateFlags(cmd *cobra.Command, s model.Settings) error {
	if cmd.Flags().Changed("time") && (s.TimeLimitMinutes < 1 || s.TimeLimitMinutes > maxTimeLimit) {
		return fmt.Errorf("--time must be between 1 and %d", maxTimeLimit)
	}
	if cmd.Flags().Changed("min") && (s.MinFactor < 0 || s.MinFactor > maxFactor) {
		return fmt.Errorf("--min must be between 0 and %d", maxFactor)
	}
	if cmd.Flags().Changed("max") && (s.MaxFactor < 1 || s.MaxFactor > maxFactor) {
		return fmt.Errorf("--max must be between 1 and %d", maxFactor)
	}
	if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
		if s.MinFactor > s.MaxFactor {
			return fmt.Errorf("--min (%d) must not exceed --max (%d)", s.MinFactor, s.MaxFactor)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show persisted drill settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	logger := newLogger(os.Stderr, debugMode, useColor(os.Stderr))
	s, err := settings.NewKVStore(st).Load(cmd.Context())
	if err != nil {
		logger.Logf("[WARN] some settings could not be read, showing defaults for them: %v", err)
	}
	return writeSettings(cmd.OutOrStdout(), s)
}

func writeSettings(w io.Writer, s model.Settings) error {
	lines := []string{
		fmt.Sprintf("%s = %d", settings.KeyTimeLimit, s.TimeLimitMinutes),
		fmt.Sprintf("%s = %d", settings.KeyMinFactor, s.MinFactor),
		fmt.Sprintf("%s = %d", settings.KeyMaxFactor, s.MaxFactor),
		fmt.Sprintf("%s = %t", settings.KeyNoDuplicates, s.NoDuplicates),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats over recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWeakTop, "weak-top", defaultWeakTop, "number of most-missed facts to list")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window for the accuracy curve")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print the report instead of opening the stats UI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "weak-top", &statsWeakTop, fileCfg.Stats.WeakTop)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	cfg, err := statsConfig(statsSince, statsLast)
	if err != nil {
		return err
	}
	if statsWeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	if !statsPlain && isTerminal(out) {
		program := tea.NewProgram(statsui.NewModel(st, cfg, statsCurveWindow, statsWeakTop), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	rep, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build stats: %w", err)
	}
	return rep.Render(out, statsCurveWindow, statsWeakTop)
}

func statsConfig(since string, last int) (model.StatsConfig, error) {
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.StatsConfig{Last: last}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the report of a recorded session",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportID, "id", "", "session id (default: latest)")
	cmd.Flags().BoolVar(&reportHTML, "html", false, "write the printable HTML page")
	cmd.Flags().BoolVar(&reportOpen, "open", false, "open the printable page in the system viewer (implies --html)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	res, err := st.GetSession(cmd.Context(), reportID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if res == nil {
		if reportID == "" {
			return errors.New("no recorded sessions yet")
		}
		return fmt.Errorf("session %q not found", reportID)
	}
	sum := report.FromResult(*res)

	out := cmd.OutOrStdout()
	if err := writeReport(out, sum, useColor(out)); err != nil {
		return err
	}
	if !reportHTML && !reportOpen {
		return nil
	}
	path, err := report.WritePrintable(config.DefaultReportDir(), sum, time.Now())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "\nPrintable report: %s\n", path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if reportOpen {
		return report.Open(path)
	}
	return nil
}

// writeReport renders the text report, colouring the answer marks when
// colored is set.
func writeReport(w io.Writer, sum report.Summary, colored bool) error {
	var buf bytes.Buffer
	if err := report.RenderText(&buf, sum); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	text := buf.String()
	if colored {
		text = markColorizer().Replace(text)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func markColorizer() *strings.Replacer {
	ok := color.New(color.FgGreen)
	ok.EnableColor()
	bad := color.New(color.FgRed)
	bad.EnableColor()
	return strings.NewReplacer(
		"("+report.MarkCorrect+")", "("+ok.Sprint(report.MarkCorrect)+")",
		"("+report.MarkIncorrect+")", "("+bad.Sprint(report.MarkIncorrect)+")",
	)
}

func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newLogger(w io.Writer, dbg, colored bool) lgr.L {
	opts := []lgr.Option{lgr.Out(w), lgr.Err(w)}
	if dbg {
		opts = append(opts, lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError)
	}
	if colored {
		opts = append(opts, lgr.Map(lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}))
	}
	return lgr.New(opts...)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# sprint configuration
# Uncomment a value to enable it. Values here override the settings saved by
# the drill; CLI flags override both.

[sprint]
# time-limit = %d           # Minutes per session (1-60)
# min-factor = %d           # Smallest factor (0-12)
# max-factor = %d           # Largest factor (1-12)
# no-duplicates = %t     # Avoid repeats until every pair was asked

[stats]
# weak-top = %d            # Most-missed facts listed by "sprint stats"
# curve-window = %d         # Moving average window for the accuracy curve
`,
		model.DefaultTimeLimitMinutes,
		model.DefaultMinFactor,
		model.DefaultMaxFactor,
		model.DefaultNoDuplicates,
		defaultWeakTop,
		defaultCurveWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
