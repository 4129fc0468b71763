package main

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modelregistry/internal/blob"
	"modelregistry/internal/config"
	"modelregistry/internal/ledger"
	"modelregistry/internal/registry"
)

// app holds state shared by every subcommand for one invocation.
type app struct {
	configPath string
	root       string
	metricsOut string

	cfg      *config.Config
	log      *zap.Logger
	metrics  *prometheus.Registry
	usageErr bool
}

func newApp() *app {
	return &app{log: zap.NewNop(), metrics: prometheus.NewRegistry()}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "registryctl",
		Short:             "Champion/challenger model registry",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./registry.yaml)")
	cmd.PersistentFlags().StringVar(&a.root, "root", "", "registry root directory (overrides registry.root)")
	cmd.PersistentFlags().StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		a.usageErr = true
		return err
	})

	cmd.AddCommand(
		a.submitCmd(),
		a.trainCmd(),
		a.statusCmd(),
		a.championCmd(),
		a.historyCmd(),
	)
	return cmd
}

// setup loads configuration and builds the logger before any subcommand runs.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.root != "" {
		if cfg.Ledger.SQLitePath == filepath.Join(cfg.Registry.Root, "ledger.db") {
			cfg.Ledger.SQLitePath = filepath.Join(a.root, "ledger.db")
		}
		cfg.Registry.Root = a.root
	}
	if a.metricsOut != "" {
		cfg.Metrics.Textfile = a.metricsOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

// finish flushes the logger and exports metrics. It runs after every
// invocation, including failed ones.
func (a *app) finish() error {
	_ = a.log.Sync()
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.metrics); err != nil {
		return eris.Wrapf(err, "write metrics to %s", a.cfg.Metrics.Textfile)
	}
	return nil
}

// session is an opened registry plus the resources that back it.
type session struct {
	reg    *registry.Registry
	ledger ledger.Ledger
}

func (s *session) Close() error { return s.ledger.Close() }

// open wires a Registry from configuration. Read-only sessions skip the lock
// but still open the ledger so history can be read.
func (a *app) open(ctx context.Context, readOnly bool) (*session, error) {
	store, err := blob.Open(ctx, a.cfg.BlobOptions())
	if err != nil {
		return nil, eris.Wrap(err, "open artifact store")
	}

	var locker registry.Locker
	if !readOnly && a.cfg.Registry.Lock && store.Driver() == blob.DriverFilesystem {
		locker = registry.NewFileLock(a.cfg.Registry.Root)
	}

	led, err := ledger.Open(ctx, a.cfg.LedgerOptions())
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}

	reg, err := registry.New(registry.Options{
		Store:   store,
		Locker:  locker,
		Ledger:  led,
		Metrics: registry.NewMetrics(a.metrics),
		Logger:  a.log,
	})
	if err != nil {
		_ = led.Close()
		return nil, err
	}
	a.log.Debug("registry opened",
		zap.String("driver", string(store.Driver())),
		zap.String("root", a.cfg.Registry.Root),
		zap.String("ledger", a.cfg.Ledger.Driver),
	)
	return &session{reg: reg, ledger: led}, nil
}

// usagef reports a bad invocation; cli maps it to exit code 2.
func (a *app) usagef(format string, args ...any) error {
	a.usageErr = true
	return eris.Errorf(format, args...)
}

func (a *app) checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return a.usagef("unknown --format %q (want text, json or yaml)", format)
	}
}
