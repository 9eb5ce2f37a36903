package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/jyutdrill/internal/config"
	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/logging"
	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/session"
	"github.com/verte-zerg/jyutdrill/internal/stats"
	"github.com/verte-zerg/jyutdrill/internal/statsui"
	"github.com/verte-zerg/jyutdrill/internal/storage"
	"github.com/verte-zerg/jyutdrill/internal/store"
	"github.com/verte-zerg/jyutdrill/internal/tui"
	"github.com/verte-zerg/jyutdrill/internal/unihan"
)

const topGlyphsShown = 5

var (
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	mistakesSession bool
	mistakesClear   bool

	lookupOpen bool

	datasetOut     string
	datasetSize    int
	datasetForce   bool
	datasetRefresh bool
	datasetURL     string
)

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

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# jyutdrill configuration
# Uncomment a value to enable it. JYUTDRILL_* environment variables override
# config values, and CLI flags override both.

[practice]
# questions = %d          # Questions per session (5, 10, 20, 30 or 50)
# feedback = true         # Color the answer while typing
# mode = "count"          # Range mode: "count" or "window"
# count = %d             # Practice the N most common characters
# start = 1               # Window start position (1-based)
# end = %d               # Window end position (1-based)
# focus-weak = false      # Bias practice toward weak characters
# weak-top = %d           # Number of weak characters to focus on
# weak-factor = %.1f      # Weight factor for weak characters
# weak-window = %d        # Number of recent sessions to compute weak characters

[data]
# dir = %q
# db = %q

[log]
# level = "info"          # debug, info, warn or error
# file = %q
`,
		defaultQuestions,
		defaultCount,
		defaultCount,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		config.DefaultDataDir(),
		config.DefaultDBPath(),
		config.DefaultLogPath(),
	)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsPlain {
		return printReport(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}

	m := statsui.NewModel(st, storage.New(st, logger), cfg, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printReport(ctx context.Context, w io.Writer, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderCurve(w, report.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	if top := stats.TopGlyphsByFrequency(report.GlyphAggsAll, topGlyphsShown); len(top) > 0 {
		if _, err := fmt.Fprintf(w, "Most practised: %s\n", strings.Join(top, " ")); err != nil {
			return err
		}
	}
	if len(report.WeakGlyphs) > 0 {
		if _, err := fmt.Fprintf(w, "Weakest: %s\n", strings.Join(report.WeakGlyphs, " ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return stats.RenderGlyphTable(w, report.GlyphAggsWindow)
}

func newMistakesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mistakes",
		Short: "Print the mistake log",
		Args:  cobra.NoArgs,
		RunE:  runMistakesCmd,
	}
	cmd.Flags().BoolVar(&mistakesSession, "session", false, "show the last session's log instead of the cumulative one")
	cmd.Flags().BoolVar(&mistakesClear, "clear", false, "clear the selected log")
	return cmd
}

func runMistakesCmd(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	persistence := storage.New(st, logger)

	scope := model.ScopeCumulative
	if mistakesSession {
		scope = model.ScopeSession
	}
	if mistakesClear {
		persistence.ClearMistakes(scope)
		logErrf("Cleared %s mistakes\n", scope)
		return nil
	}
	return stats.RenderMistakes(cmd.OutOrStdout(), persistence.LoadMistakes(scope), terminalWidth())
}

// terminalWidth returns the stdout width, or 0 when stdout is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear both mistake logs and restore default settings",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	s := session.New(session.Options{
		Persistence: storage.New(st, logger),
		Settings:    model.DefaultSettings(),
		Logger:      logger,
	})
	s.ResetAll()
	logger.Info("reset mistakes and settings")
	logErrln("Cleared both mistake logs and restored default settings.")
	return nil
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <character>",
		Short: "Print the dictionary URL for a character",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookupCmd,
	}
	cmd.Flags().BoolVar(&lookupOpen, "open", false, "open the URL in the browser")
	return cmd
}

func runLookupCmd(cmd *cobra.Command, args []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	glyph := strings.TrimSpace(args[0])
	if utf8.RuneCountInString(glyph) != 1 {
		return fmt.Errorf("lookup takes a single character, got %q", glyph)
	}

	data, err := dataset.Load(cmd.Context(), dataset.PathsIn(dataDir))
	if err != nil {
		// The Big5 map is optional here; the glyph is encoded directly.
		logger.Warn("dataset unavailable for lookup", zap.Error(err))
		data = dataset.New(nil, nil, nil)
	}
	url, err := data.LookupURL(glyph)
	if err != nil {
		return fmt.Errorf("failed to build lookup url: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), url); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if lookupOpen {
		return tui.OpenURL(url)
	}
	return nil
}

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build the character dataset from the Unihan database",
		Args:  cobra.NoArgs,
		RunE:  runDatasetCmd,
	}
	cmd.Flags().StringVar(&datasetOut, "out", "", "output directory (default: --data-dir)")
	cmd.Flags().IntVar(&datasetSize, "size", 0, "limit the frequency list to N characters (0 keeps all)")
	cmd.Flags().BoolVar(&datasetForce, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&datasetRefresh, "refresh", false, "download the archive even when cached")
	cmd.Flags().StringVar(&datasetURL, "url", unihan.DefaultURL, "Unihan archive URL")
	return cmd
}

func runDatasetCmd(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	if datasetSize < 0 {
		return fmt.Errorf("--size must be >= 0")
	}
	outDir := datasetOut
	if outDir == "" {
		outDir = dataDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logErrln("Fetching Unihan database...")
	archive, err := unihan.Download(ctx, config.DefaultUnihanCacheDir(), datasetURL, datasetRefresh)
	if err != nil {
		return fmt.Errorf("failed to download Unihan archive: %w", err)
	}
	if archive.Cached {
		logErrf("Using cached archive %s\n", archive.Filename)
	} else {
		logErrf("Downloaded archive %s\n", archive.Filename)
	}

	logErrln("Extracting Cantonese readings...")
	entries, err := unihan.Extract(ctx, archive.Path)
	if err != nil {
		return fmt.Errorf("failed to extract Unihan data: %w", err)
	}
	assets, err := unihan.Build(entries, datasetSize)
	if err != nil {
		return fmt.Errorf("failed to build dataset: %w", err)
	}
	if err := unihan.WriteAssets(outDir, assets, datasetForce); err != nil {
		if errors.Is(err, unihan.ErrExists) {
			return err
		}
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := unihan.WriteAttribution(outDir, datasetURL); err != nil {
		return err
	}
	logger.Info("dataset built",
		zap.String("dir", outDir),
		zap.Int("records", len(assets.Records)),
		zap.Int("ranked", len(assets.Glyphs)))
	logErrf("Wrote %d characters (%d ranked by frequency) to %s\n", len(assets.Records), len(assets.Glyphs), outDir)
	return nil
}
