package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"countdown/internal"
	"countdown/internal/config"
	"countdown/internal/state"
	"countdown/internal/timelog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath string
	database   string
	logFile    string
	logLevel   string
	tick       time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "countdown",
		Short:         "Three second countdown in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&f.database, "db", "", "session history database")
	root.PersistentFlags().StringVar(&f.logFile, "log-file", "", "log file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&f.tick, "tick", 0, "tick interval, e.g. 16ms")

	root.AddCommand(newHistoryCmd(&f))
	return root
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("db") {
		cfg.Database = f.database
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("tick") {
		cfg.TickInterval = f.tick
	}
	return cfg, cfg.Validate()
}

func openLogger(cfg config.Config) (*log.Logger, io.Closer, error) {
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := log.NewWithOptions(file, log.Options{
		ReportTimestamp: true,
		Level:           cfg.Level(),
		Prefix:          "countdown",
	})
	return logger, file, nil
}

func runTUI(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, logFile, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	opts := []state.Option{
		state.WithInterval(cfg.TickInterval),
		state.WithLogger(logger),
	}
	if cfg.History {
		repo, err := timelog.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer repo.Close()
		opts = append(opts, state.WithRecorder(repo))
	}

	machine, err := state.New(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		machine.Run(ctx)
		close(done)
	}()

	m := internal.NewModel(machine, logger)
	p := tea.NewProgram(m, tea.WithAltScreen())

	updates := machine.Subscribe(8)
	go func() {
		for st := range updates {
			p.Send(internal.MsgStatus{Status: st})
		}
	}()

	logger.Info("started", "tick", cfg.TickInterval, "history", cfg.History)
	_, err = p.Run()
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func newHistoryCmd(f *flags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past countdown sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *f)
			if err != nil {
				return err
			}
			repo, err := timelog.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer repo.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			entries, err := repo.List(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "no sessions")
				return nil
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(out, "%s\t%-9s\tlasted %s\tremaining %s\tpauses %d\n",
					humanize.Time(e.EndedAt),
					e.Outcome,
					e.Duration().Round(time.Millisecond),
					e.Remaining,
					e.Pauses,
				)
			}

			stats, err := repo.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}
			outcomes := make([]string, 0, len(stats))
			for o := range stats {
				outcomes = append(outcomes, string(o))
			}
			sort.Strings(outcomes)
			_, _ = fmt.Fprintln(out)
			for _, o := range outcomes {
				_, _ = fmt.Fprintf(out, "%s: %s\n", o, humanize.Comma(int64(stats[timelog.Outcome(o)])))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "sessions to show, 0 for all")
	return cmd
}
