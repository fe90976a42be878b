package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/academiaflow/internal/advisor"
	"github.com/tgienger/academiaflow/internal/config"
	"github.com/tgienger/academiaflow/internal/db"
	"github.com/tgienger/academiaflow/internal/logging"
	"github.com/tgienger/academiaflow/internal/store"
	"github.com/tgienger/academiaflow/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	configPath string
	logFile    string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:          "academiaflow",
		Short:        "Academic task manager with an AI study advisor",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	cmd.SetVersionTemplate("academiaflow {{.Version}}\n")

	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a config file (default: $XDG_CONFIG_HOME/academiaflow/config.toml)")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Write logs to this file instead of the configured one")
	return cmd
}

func run(f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}

	log, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	// view prefs are a convenience; run without them if the database is unusable
	var prefs ui.PrefsStore
	database, err := db.Open(cfg.StateDB)
	if err != nil {
		log.Warnw("state database unavailable", "path", cfg.StateDB, "error", err)
	} else {
		defer database.Close()
		prefs = database
	}

	adv, err := advisor.New(cfg.AdvisorOptions(), log)
	if err != nil {
		return fmt.Errorf("init advisor: %w", err)
	}
	if !adv.Configured() {
		log.Infow("no API key configured, advisor uses fallbacks")
	}

	st := store.New(log)
	if cfg.SeedSamples {
		st.Seed(store.SampleTasks(time.Now()))
	}

	app := ui.NewApp(ui.Options{
		Store:          st,
		Advisor:        adv,
		Prefs:          prefs,
		Log:            log,
		AdviceDebounce: cfg.AdviceDebounce,
		Now:            time.Now,
	})
	log.Infow("starting", "version", version, "tasks", st.Len())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run application: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
