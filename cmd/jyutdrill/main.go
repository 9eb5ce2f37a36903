// Package main provides the CLI entrypoint for jyutdrill.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/jyutdrill/internal/config"
	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/logging"
	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/storage"
	"github.com/verte-zerg/jyutdrill/internal/store"
	"github.com/verte-zerg/jyutdrill/internal/tui"
)

const (
	defaultQuestions   = 10
	defaultCount       = 100
	defaultWeakTop     = 8
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
)

var (
	practiceQuestions  int
	practiceFeedback   bool
	practiceMode       string
	practiceCount      int
	practiceStart      int
	practiceEnd        int
	practiceRetry      string
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	practiceEphemeral  bool

	dataDir string
	dbPath  string
	verbose bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jyutdrill",
		Short:         "Cantonese Jyutping flashcard trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir(), "directory holding the character dataset")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path of the SQLite database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.Flags().IntVar(&practiceQuestions, "questions", defaultQuestions, "questions per session (5, 10, 20, 30 or 50)")
	rootCmd.Flags().BoolVar(&practiceFeedback, "feedback", true, "color the answer while typing")
	rootCmd.Flags().StringVar(&practiceMode, "mode", string(model.RangeCount), "range mode (count or window)")
	rootCmd.Flags().IntVar(&practiceCount, "count", defaultCount, "practice the N most common characters")
	rootCmd.Flags().IntVar(&practiceStart, "start", 1, "first frequency position of the window (1-based)")
	rootCmd.Flags().IntVar(&practiceEnd, "end", defaultCount, "last frequency position of the window (1-based)")
	rootCmd.Flags().StringVar(&practiceRetry, "retry", "", "start by retrying mistakes (session or cumulative)")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak characters")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak characters to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak characters")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent sessions to compute weak characters")
	rootCmd.Flags().BoolVar(&practiceEphemeral, "ephemeral", false, "keep mistakes, settings and history in memory only")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newMistakesCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newDatasetCmd())

	return rootCmd
}

// setup loads the config file and environment, applies the shared data
// locations and builds the file logger.
func setup(cmd *cobra.Command) (config.FileConfig, *zap.Logger, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyConfig(cmd, "data-dir", &dataDir, fileCfg.Data.Dir)
	applyConfig(cmd, "db", &dbPath, fileCfg.Data.DB)

	opts := logging.Options{Path: config.DefaultLogPath()}
	if fileCfg.Log.File != nil {
		opts.Path = *fileCfg.Log.File
	}
	if fileCfg.Log.Level != nil {
		opts.Level = *fileCfg.Log.Level
	}
	if verbose {
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		logger = zap.NewNop()
	}
	logger.Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("data_dir", dataDir),
		zap.String("db", dbPath))
	return fileCfg, logger, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	var (
		backend storage.Backend
		history tui.History
	)
	if practiceEphemeral {
		backend = storage.NewMemory()
	} else {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		backend = st
		history = st
	}
	persistence := storage.New(backend, logger)

	settings, err := resolveSettings(cmd, persistence.LoadSettings(), fileCfg.Practice)
	if err != nil {
		return err
	}
	pool, err := model.ParsePool(practiceRetry)
	if err != nil {
		return fmt.Errorf("invalid --retry value: %w", err)
	}

	applyConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)
	weak := tui.WeakFocus{
		Enabled: practiceFocusWeak,
		Top:     practiceWeakTop,
		Factor:  practiceWeakFactor,
		Window:  practiceWeakWindow,
	}
	if err := validateWeak(weak); err != nil {
		return err
	}
	if weak.Enabled && history == nil {
		logErrln("--focus-weak has no history to draw on with --ephemeral; using uniform selection")
	}

	paths := dataset.PathsIn(dataDir)
	logger.Info("starting practice",
		zap.Int("questions", settings.QuestionsPerSession),
		zap.String("mode", string(settings.Range.Mode)),
		zap.String("pool", string(pool)),
		zap.Bool("ephemeral", practiceEphemeral))

	m := tui.NewModel(tui.Options{
		Loader: func(ctx context.Context) (*dataset.Dataset, error) {
			return dataset.Load(ctx, paths)
		},
		Persistence: persistence,
		History:     history,
		Settings:    settings,
		Pool:        pool,
		Weak:        weak,
		Logger:      logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if loadErr := m.LoadErr(); loadErr != nil {
		return datasetLoadError(dataDir, loadErr)
	}
	return nil
}

// resolveSettings layers stored settings, the config file and environment, and
// explicitly set flags, in increasing precedence. Positions on the command line
// and in the config file are 1-based.
func resolveSettings(cmd *cobra.Command, stored model.Settings, practice config.PracticeConfig) (model.Settings, error) {
	storedMode := string(stored.Range.Mode)
	storedStart := stored.Range.Start + 1
	storedEnd := stored.Range.End + 1
	applyConfig(cmd, "questions", &practiceQuestions, &stored.QuestionsPerSession)
	applyConfig(cmd, "feedback", &practiceFeedback, &stored.RealtimeFeedback)
	applyConfig(cmd, "mode", &practiceMode, &storedMode)
	applyConfig(cmd, "count", &practiceCount, &stored.Range.Count)
	applyConfig(cmd, "start", &practiceStart, &storedStart)
	applyConfig(cmd, "end", &practiceEnd, &storedEnd)

	applyConfig(cmd, "questions", &practiceQuestions, practice.Questions)
	applyConfig(cmd, "feedback", &practiceFeedback, practice.Feedback)
	applyConfig(cmd, "mode", &practiceMode, practice.Mode)
	applyConfig(cmd, "count", &practiceCount, practice.Count)
	applyConfig(cmd, "start", &practiceStart, practice.Start)
	applyConfig(cmd, "end", &practiceEnd, practice.End)

	settings := model.Settings{
		QuestionsPerSession: practiceQuestions,
		RealtimeFeedback:    practiceFeedback,
		Range: model.PracticeRange{
			Mode:  model.RangeMode(strings.ToLower(strings.TrimSpace(practiceMode))),
			Count: practiceCount,
			Start: practiceStart - 1,
			End:   practiceEnd - 1,
		},
	}
	// Upper bounds depend on the dataset and are checked once it is loaded.
	if err := settings.Validate(0); err != nil {
		return model.Settings{}, fmt.Errorf("invalid practice settings: %w", err)
	}
	return settings, nil
}

func validateWeak(weak tui.WeakFocus) error {
	if weak.Top < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if weak.Factor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if weak.Window < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func datasetLoadError(dir string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load character data: %v", err),
		fmt.Sprintf("expected dataset in: %s", dir),
		"Run: jyutdrill dataset",
		"Or use another directory: jyutdrill --data-dir <dir>",
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
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
