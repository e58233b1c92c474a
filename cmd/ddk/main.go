// Package main provides the CLI entrypoint for ddk.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ddk/internal/config"
	"github.com/verte-zerg/ddk/internal/feedback"
	"github.com/verte-zerg/ddk/internal/gallery"
	"github.com/verte-zerg/ddk/internal/logging"
	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/session"
	"github.com/verte-zerg/ddk/internal/settings"
	"github.com/verte-zerg/ddk/internal/stats"
	"github.com/verte-zerg/ddk/internal/store"
	"github.com/verte-zerg/ddk/internal/tui"
)

const (
	defaultCountdown   = 3
	defaultTickMs      = 100
	defaultCurveWindow = 5
	defaultLogLevel    = "info"
	defaultStatsWidth  = 80
)

var (
	runSeconds   int
	runCountdown int
	runUnit      string
	runTickMs    int
	runBell      bool

	counterUnit   string
	counterTickMs int
	counterBell   bool

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsSeconds     int
	statsKind        string

	logsReset  bool
	logsKind   string
	prefsReset bool
	prefsKind  string

	kindsSort     string
	kindsDesc     bool
	kindsFavorite string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ddk",
		Short:         "Tapping assessments",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runAssessmentCmd,
	}

	rootCmd.Flags().IntVar(&runSeconds, "seconds", 0, "target duration in seconds (default: saved preference)")
	rootCmd.Flags().IntVar(&runCountdown, "countdown", defaultCountdown, "countdown before counting starts, in seconds")
	rootCmd.Flags().StringVar(&runUnit, "unit", "", "rate unit: bpm or bps (default: saved preference)")
	rootCmd.Flags().IntVar(&runTickMs, "tick", defaultTickMs, "timer tick interval in milliseconds")
	rootCmd.Flags().BoolVar(&runBell, "bell", true, "ring the terminal bell when a run finishes")

	rootCmd.AddCommand(newCounterCmd(model.KindCount, "Count taps until stopped"))
	rootCmd.AddCommand(newCounterCmd(model.KindHeartRate, "Tap along with a pulse to measure heart rate"))
	rootCmd.AddCommand(newKindsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newPrefsCmd())

	return rootCmd
}

func runAssessmentCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "seconds", &runSeconds, fileCfg.Session.TargetSeconds)
	applyIntConfig(cmd, "countdown", &runCountdown, fileCfg.Session.CountdownSeconds)
	applyStringConfig(cmd, "unit", &runUnit, fileCfg.Session.RateUnit)
	applyIntConfig(cmd, "tick", &runTickMs, fileCfg.Session.TickMs)
	applyBoolConfig(cmd, "bell", &runBell, fileCfg.Session.Bell)

	var unit model.RateUnit
	if runUnit != "" {
		var ok bool
		if unit, ok = model.ParseRateUnit(runUnit); !ok {
			return fmt.Errorf("invalid --unit value %q (want bpm or bps)", runUnit)
		}
	}
	if err := validateRunFlags(runSeconds, runCountdown, runTickMs); err != nil {
		return err
	}

	log, closeLog, err := openLogger(fileCfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	ctrl, err := session.New(ctx, st)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if runSeconds != 0 {
		if err := ctrl.SetTargetSeconds(ctx, runSeconds); err != nil {
			return fmt.Errorf("failed to save target duration: %w", err)
		}
	}
	if unit != "" {
		if err := ctrl.SetRateUnit(ctx, unit); err != nil {
			return fmt.Errorf("failed to save rate unit: %w", err)
		}
	}

	m := tui.NewModel(ctrl, st, tui.Options{
		CountdownSeconds: runCountdown,
		TickInterval:     time.Duration(runTickMs) * time.Millisecond,
		Logger:           log,
		Feedback:         newFeedback(runBell, os.Stderr),
	})
	defer m.Close()

	log.Info("assessment opened", "kind", model.KindTimed, "target_seconds", ctrl.TargetSeconds(), "countdown_seconds", runCountdown, "unit", ctrl.RateUnit())
	return runProgram(m)
}

func newCounterCmd(kind model.Kind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCounterCmd(cmd, kind)
		},
	}
	cmd.Flags().StringVar(&counterUnit, "unit", "", "rate unit: bpm or bps (default: saved preference)")
	cmd.Flags().IntVar(&counterTickMs, "tick", defaultTickMs, "timer tick interval in milliseconds")
	cmd.Flags().BoolVar(&counterBell, "bell", true, "ring the terminal bell when a run is stopped")
	return cmd
}

func runCounterCmd(cmd *cobra.Command, kind model.Kind) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "tick", &counterTickMs, fileCfg.Session.TickMs)
	applyBoolConfig(cmd, "bell", &counterBell, fileCfg.Session.Bell)

	var unit model.RateUnit
	if counterUnit != "" {
		var ok bool
		if unit, ok = model.ParseRateUnit(counterUnit); !ok {
			return fmt.Errorf("invalid --unit value %q (want bpm or bps)", counterUnit)
		}
	}
	if err := validateRunFlags(0, 0, counterTickMs); err != nil {
		return err
	}

	log, closeLog, err := openLogger(fileCfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	counter, err := session.NewCounter(ctx, st, kind)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if unit != "" {
		if err := counter.SetRateUnit(ctx, unit); err != nil {
			return fmt.Errorf("failed to save rate unit: %w", err)
		}
	}

	m := tui.NewCounterModel(counter, st, tui.Options{
		TickInterval: time.Duration(counterTickMs) * time.Millisecond,
		Logger:       log,
		Feedback:     newFeedback(counterBell, os.Stderr),
	})
	defer m.Close()

	log.Info("assessment opened", "kind", kind, "unit", counter.RateUnit())
	return runProgram(m)
}

// newFeedback returns the bell notifier, or nil when disabled. The bell goes
// to w rather than stdout so it does not interleave with the renderer.
func newFeedback(bell bool, w io.Writer) feedback.Notifier {
	if !bell {
		return nil
	}
	return feedback.Bell{W: w}
}

func runProgram(m tea.Model) error {
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// parseKindFlag parses a --kind value. With allowAll, "all" and the empty
// string select every kind.
func parseKindFlag(v string, allowAll bool) (model.Kind, error) {
	if allowAll && (v == "" || strings.EqualFold(v, "all")) {
		return "", nil
	}
	kind, ok := model.ParseKind(v)
	if !ok {
		return "", fmt.Errorf("invalid --kind value %q (want timed, count or heart-rate)", v)
	}
	return kind, nil
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
	if err := writeDefaultConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeDefaultConfig creates the commented template at path unless a file already exists.
func writeDefaultConfig(path string) error {
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
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show assessment history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&statsSeconds, "seconds", 0, "only sessions with this target duration")
	cmd.Flags().StringVar(&statsKind, "kind", string(model.KindTimed), "assessment kind: timed, count, heart-rate or all")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig(statsKind, statsSince, statsLast, statsCurveWindow, statsSeconds)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(report.Sessions) == 0 {
		logErrln("No assessments recorded yet. Run: ddk")
		return nil
	}
	return report.Render(cmd.OutOrStdout(), outputWidth())
}

func buildStatsConfig(kind, since string, last, curveWindow, seconds int) (model.StatsConfig, error) {
	parsedKind, err := parseKindFlag(kind, true)
	if err != nil {
		return model.StatsConfig{}, err
	}
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if curveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	if seconds != 0 && !settings.ValidTargetSeconds(seconds) {
		return model.StatsConfig{}, fmt.Errorf("--seconds must be between %d and %d", settings.MinTargetSeconds, settings.MaxTargetSeconds)
	}
	return model.StatsConfig{
		Kind:          parsedKind,
		Since:         sinceTime,
		Last:          last,
		CurveWindow:   curveWindow,
		TargetSeconds: seconds,
	}, nil
}

func outputWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultStatsWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultStatsWidth
	}
	return width
}

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or reset recorded assessments",
		Args:  cobra.NoArgs,
		RunE:  runLogsCmd,
	}
	cmd.Flags().BoolVar(&logsReset, "reset", false, "delete recorded assessments")
	cmd.Flags().StringVar(&logsKind, "kind", "all", "assessment kind: timed, count, heart-rate or all")
	return cmd
}

// sessionHistory is the part of the store the logs command needs.
type sessionHistory interface {
	SessionHistory(ctx context.Context, kind model.Kind) (model.History, error)
	DeleteSessions(ctx context.Context, kind model.Kind) (int64, error)
}

func runLogsCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	kind, err := parseKindFlag(logsKind, true)
	if err != nil {
		return err
	}
	return printLogs(cmd.Context(), cmd.OutOrStdout(), st, kind, logsReset)
}

// printLogs summarizes the runs of kind, or of every kind when kind is empty.
func printLogs(ctx context.Context, w io.Writer, st sessionHistory, kind model.Kind, reset bool) error {
	if reset {
		n, err := st.DeleteSessions(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to reset logs: %w", err)
		}
		_, err = fmt.Fprintf(w, "Deleted %s\n", assessmentsText(int(n)))
		return err
	}
	h, err := st.SessionHistory(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if _, err := fmt.Fprintln(w, assessmentsText(h.Count)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if h.Count > 0 {
		if _, err := fmt.Fprintf(w, "Last: %s\n", h.LastAt.Local().Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func assessmentsText(n int) string {
	if n == 1 {
		return "1 assessment"
	}
	return fmt.Sprintf("%d assessments", n)
}

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or reset saved preferences",
		Args:  cobra.NoArgs,
		RunE:  runPrefsCmd,
	}
	cmd.Flags().BoolVar(&prefsReset, "reset", false, "restore default preferences")
	cmd.Flags().StringVar(&prefsKind, "kind", string(model.KindTimed), "assessment kind: timed, count or heart-rate")
	return cmd
}

func runPrefsCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	kind, err := parseKindFlag(prefsKind, false)
	if err != nil {
		return err
	}
	return printPrefs(cmd.Context(), cmd.OutOrStdout(), st, kind, prefsReset)
}

func printPrefs(ctx context.Context, w io.Writer, repo settings.Repository, kind model.Kind, reset bool) error {
	if reset {
		if err := settings.ResetKind(ctx, repo, kind); err != nil {
			return fmt.Errorf("failed to reset preferences: %w", err)
		}
	}
	if kind != model.KindTimed {
		unit, err := settings.LoadRateUnit(ctx, repo, kind)
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		fav, err := settings.IsFavorite(ctx, repo, kind)
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		_, err = fmt.Fprintf(w, "unit      %s\nfavorite  %t\n", unit, fav)
		return err
	}
	prefs, err := settings.Load(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	_, err = fmt.Fprintf(w, "seconds   %d\nshow-rate %t\nunit      %s\n", prefs.TargetSeconds, prefs.ShowRate, prefs.RateUnit)
	return err
}

func newKindsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List assessment kinds, favorites first",
		Args:  cobra.NoArgs,
		RunE:  runKindsCmd,
	}
	cmd.Flags().StringVar(&kindsSort, "sort", "", "order by kind or date (saved)")
	cmd.Flags().BoolVar(&kindsDesc, "desc", false, "reverse the order (saved)")
	cmd.Flags().StringVar(&kindsFavorite, "favorite", "", "toggle the favorite flag of a kind")
	return cmd
}

// kindsRequest carries the changes the kinds command applies before listing.
type kindsRequest struct {
	SortBy   string
	Desc     *bool
	Favorite string
}

func runKindsCmd(cmd *cobra.Command, _ []string) error {
	req := kindsRequest{Favorite: kindsFavorite}
	if cmd.Flags().Changed("sort") {
		req.SortBy = kindsSort
	}
	if cmd.Flags().Changed("desc") {
		req.Desc = &kindsDesc
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	return printKinds(cmd.Context(), cmd.OutOrStdout(), st, st, req)
}

func printKinds(ctx context.Context, w io.Writer, repo settings.Repository, hist gallery.HistorySource, req kindsRequest) error {
	if req.Favorite != "" {
		kind, err := parseKindFlag(req.Favorite, false)
		if err != nil {
			return fmt.Errorf("invalid --favorite value %q", req.Favorite)
		}
		if _, err := settings.ToggleFavorite(ctx, repo, kind); err != nil {
			return fmt.Errorf("failed to save favorite: %w", err)
		}
	}
	if req.SortBy != "" || req.Desc != nil {
		order, err := settings.LoadKindSort(ctx, repo)
		if err != nil {
			return err
		}
		if req.SortBy != "" {
			by, ok := settings.ParseSortBy(req.SortBy)
			if !ok {
				return fmt.Errorf("invalid --sort value %q (want kind or date)", req.SortBy)
			}
			order.By = by
		}
		if req.Desc != nil {
			order.Ascending = !*req.Desc
		}
		if err := settings.SaveKindSort(ctx, repo, order); err != nil {
			return fmt.Errorf("failed to save sort order: %w", err)
		}
	}

	entries, order, err := gallery.Load(ctx, repo, hist)
	if err != nil {
		return err
	}
	direction := "ascending"
	if !order.Ascending {
		direction = "descending"
	}
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(e.Kind.Title()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sorted by %s, %s\n", order.By, direction)
	favorites, others := gallery.Split(entries)
	for _, section := range []struct {
		title   string
		entries []gallery.Entry
	}{{"Favorites", favorites}, {"Assessments", others}} {
		if len(section.entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", section.title)
		for _, e := range section.entries {
			line := "  " + runewidth.FillRight(e.Kind.Title(), width) + "  " + gallery.CountDescription(e.Count)
			if !e.LastUsed.IsZero() {
				line += ", last " + e.LastUsed.Local().Format("2006-01-02 15:04")
			}
			b.WriteString(line + "\n")
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func openLogger(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	level := defaultLogLevel
	if cfg.Level != nil {
		level = *cfg.Level
	}
	path := config.DefaultLogPath()
	if cfg.Path != nil && *cfg.Path != "" {
		path = *cfg.Path
	}
	log, closeFn, err := logging.Open(path, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	return log, closeFn, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
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
	return fmt.Sprintf(`# ddk configuration
# Uncomment a value to enable it. CLI flags override config values.

[session]
# seconds = %d            # Target duration (%d-%d); overrides the saved preference
# countdown = %d           # Countdown before counting starts
# unit = "bpm"            # Rate unit: bpm or bps
# tick-ms = %d           # Timer tick interval
# bell = true             # Ring the terminal bell when a run finishes

[log]
# level = %q          # debug, info, warn, error
# path = %q
`,
		settings.DefaultTargetSeconds,
		settings.MinTargetSeconds,
		settings.MaxTargetSeconds,
		defaultCountdown,
		defaultTickMs,
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func validateRunFlags(seconds, countdown, tickMs int) error {
	if seconds != 0 && !settings.ValidTargetSeconds(seconds) {
		return fmt.Errorf("--seconds must be between %d and %d", settings.MinTargetSeconds, settings.MaxTargetSeconds)
	}
	if countdown < 0 {
		return fmt.Errorf("--countdown must be >= 0")
	}
	if tickMs <= 0 {
		return fmt.Errorf("--tick must be > 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
