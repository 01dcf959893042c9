package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/0xmhha/filetail/pkg/config"
	"github.com/0xmhha/filetail/pkg/display"
	"github.com/0xmhha/filetail/pkg/journal"
	"github.com/0xmhha/filetail/pkg/logger"
	"github.com/0xmhha/filetail/pkg/metrics"
	"github.com/0xmhha/filetail/pkg/tailer"
	"github.com/0xmhha/filetail/pkg/watcher"
)

// followCommand tails a file until interrupted.
type followCommand struct {
	path        string
	format      string
	color       string
	showPath    bool
	journal     bool
	metricsAddr string
	configPath  string
}

func newFollowCommand(opts *rootOptions) *cobra.Command {
	c := &followCommand{}

	cmd := &cobra.Command{
		Use:   "follow <path>",
		Short: "Follow a file and print appended data",
		Example: `  # Follow a log file
  filetail follow /var/log/app.log

  # Emit JSON lines and record events to the journal
  filetail follow --format json --journal /var/log/app.log

  # Serve Prometheus metrics while following
  filetail follow --metrics-addr :9100 /var/log/app.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.path = args[0]
			c.configPath = opts.configPath
			return c.Execute(cmd.Context(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&c.format, "format", "", "output format (text, json)")
	flags.StringVar(&c.color, "color", "", "colorize text output (auto, always, never)")
	flags.BoolVar(&c.showPath, "show-path", false, "prefix each line with the file path")
	flags.BoolVar(&c.journal, "journal", false, "record events to the journal")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// Execute runs the follow command, writing events to out.
func (c *followCommand) Execute(ctx context.Context, out io.Writer) error {
	cfg, err := c.configure()
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	printer := display.NewPrinter(out, display.Config{
		Format:   display.Format(cfg.Output.Format),
		Color:    display.ResolveColor(cfg.Output.Color, outputFile(out)),
		ShowPath: c.showPath,
	})
	defer func() {
		if err := printer.Flush(); err != nil {
			log.Error("failed to flush output", "error", err)
		}
	}()

	observers := tailer.MultiObserver{printer}

	if cfg.Journal.Enabled {
		store, err := journal.New(journal.Config{
			DBPath:  cfg.Journal.DBPath,
			Timeout: cfg.Journal.Timeout,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("failed to close journal", "error", err)
			}
		}()
		observers = append(observers, journal.NewRecorder(store, log))
	}

	var obs tailer.Observer = observers

	if cfg.Metrics.Addr != "" {
		wrapped, stop, err := serveMetrics(cfg.Metrics.Addr, obs, log)
		if err != nil {
			return err
		}
		defer stop()
		obs = wrapped
	}

	t, err := tailer.New(tailer.Config{
		File:             c.path,
		SizePollAttempts: cfg.Tailer.SizePollAttempts,
		SizePollInterval: cfg.Tailer.SizePollInterval,
		StartTimeout:     cfg.Tailer.StartTimeout,
		MaxReadSize:      cfg.Tailer.MaxReadSize,
		NewSource: func(log logger.Logger) (watcher.Source, error) {
			return watcher.New(watcher.Config{
				MaxBatch:   cfg.Watcher.MaxBatch,
				BufferSize: cfg.Watcher.BufferSize,
			}, log)
		},
	}, obs, log)
	if err != nil {
		return fmt.Errorf("failed to create tailer: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tailer: %w", err)
	}

	if !t.WaitForStart(cfg.Tailer.StartTimeout) {
		t.Stop()
		<-t.Done()
		if err := t.Err(); err != nil {
			return fmt.Errorf("failed to start tailer: %w", err)
		}
		// Interrupted before the watch was established.
		return nil
	}

	log.Info("following file", "path", t.Path())

	<-t.Done()

	if t.State() == tailer.StateFailed {
		return fmt.Errorf("tailer failed: %w", t.Err())
	}
	return nil
}

// configure loads configuration and applies command-line overrides.
func (c *followCommand) configure() (*config.Config, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, err
	}

	if c.format != "" {
		cfg.Output.Format = c.format
	}
	if c.color != "" {
		cfg.Output.Color = c.color
	}
	if c.journal {
		cfg.Journal.Enabled = true
	}
	if c.metricsAddr != "" {
		cfg.Metrics.Addr = c.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// serveMetrics instruments obs and starts the /metrics endpoint. The
// returned function stops the server.
func serveMetrics(addr string, obs tailer.Observer, log logger.Logger) (tailer.Observer, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	srv, err := metrics.Start(addr, reg, log)
	if err != nil {
		return nil, nil, err
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("failed to stop metrics server", "error", err)
		}
	}

	return m.Wrap(obs), stop, nil
}

// outputFile returns w as a file when it is one, for terminal detection.
func outputFile(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}

// statsCommand prints journal records.
type statsCommand struct {
	path       string
	format     string
	compact    bool
	configPath string
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	c := &statsCommand{}

	cmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Display journaled event counters",
		Example: `  # Show all journaled files
  filetail stats

  # Show one file as JSON
  filetail stats --format json /var/log/app.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.path = args[0]
			}
			c.configPath = opts.configPath
			return c.Execute(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&c.format, "format", "", "output format (text, json)")
	cmd.Flags().BoolVar(&c.compact, "compact", false, "compact output")

	return cmd
}

// Execute runs the stats command.
func (c *statsCommand) Execute(out io.Writer) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if c.format != "" {
		format = c.format
	}
	if format != string(display.FormatText) && format != string(display.FormatJSON) {
		return fmt.Errorf("%w: %s", config.ErrInvalidOutputFormat, format)
	}

	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := c.records(store)
	if err != nil {
		return err
	}

	formatter := display.NewFormatter(display.Config{
		Format:  display.Format(format),
		Compact: c.compact,
	})
	return formatter.FormatRecords(out, records)
}

func (c *statsCommand) records(store journal.Store) ([]*journal.Record, error) {
	if c.path == "" {
		records, err := store.List()
		if err != nil {
			return nil, fmt.Errorf("failed to list journal: %w", err)
		}
		return records, nil
	}

	path, err := filepath.Abs(c.path)
	if err != nil {
		return nil, err
	}

	rec, err := store.Get(path)
	if errors.Is(err, journal.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return []*journal.Record{rec}, nil
}

// resetCommand clears a path's journal record.
type resetCommand struct {
	path       string
	configPath string
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	c := &resetCommand{}

	return &cobra.Command{
		Use:   "reset <path>",
		Short: "Clear the journal record of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.path = args[0]
			c.configPath = opts.configPath
			return c.Execute(cmd.OutOrStdout())
		},
	}
}

// Execute runs the reset command.
func (c *resetCommand) Execute(out io.Writer) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	path, err := filepath.Abs(c.path)
	if err != nil {
		return err
	}

	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Reset(path); err != nil {
		return fmt.Errorf("failed to reset %s: %w", path, err)
	}

	_, err = fmt.Fprintf(out, "Journal record cleared: %s\n", path)
	return err
}

// openJournal opens the journal database for reading or maintenance,
// whether or not recording is enabled.
func openJournal(cfg *config.Config) (journal.Store, error) {
	store, err := journal.New(journal.Config{
		DBPath:  cfg.Journal.DBPath,
		Timeout: cfg.Journal.Timeout,
	}, logger.Noop())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}
