package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"probedash/internal/api"
	"probedash/internal/config"
	"probedash/internal/dashboard"
	"probedash/internal/geo"
	"probedash/internal/logging"
	"probedash/internal/store"
	"probedash/internal/trace"
)

// app carries the settings shared by every subcommand.
type app struct {
	configPath string
	envFile    string
	snapshot   string
	remote     string
	logLevel   string

	cfg    config.Config
	loc    *time.Location
	logger *logrus.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	fatal(err)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "probedash",
		Short:         "probedash - dashboard over a network probe snapshot",
		Long:          "probedash reads the SQLite snapshot written by the probe recorder and reports uptime, latency, packet loss and stability per host.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to YAML config")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file overlaid on the environment")
	flags.StringVar(&a.snapshot, "snapshot", "", "snapshot database path override")
	flags.StringVar(&a.remote, "remote", "", "read from a running probedash server instead of the snapshot")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override")

	root.AddCommand(
		newReportCmd(a),
		newResultsCmd(a),
		newLatestCmd(a),
		newTracesCmd(a),
		newHostsCmd(a),
		newHealthCmd(a),
		newChartsCmd(a),
		newExportCmd(a),
		newTargetsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup() error {
	config.LoadEnv(logging.New(config.GetEnv(config.EnvLogLevel, config.DefaultLogLevel), config.DefaultLogFormat), a.envFile)

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv(&cfg)
	if a.snapshot != "" {
		cfg.SnapshotPath = a.snapshot
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	a.cfg = cfg
	a.loc, err = cfg.Location()
	if err != nil {
		return err
	}
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (a *app) client() *api.Client {
	return api.NewClient(a.remote)
}

func (a *app) openSnapshot(ctx context.Context) (*store.Snapshot, error) {
	snap, err := store.Open(ctx, a.cfg.SnapshotPath, a.loc, a.logger)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil, fmt.Errorf("%w: %s (run the probe recorder first)", err, a.cfg.SnapshotPath)
	}
	return snap, err
}

// openGeo returns nil when no database is configured.
func (a *app) openGeo() *geo.Reader {
	reader, err := geo.Open(a.cfg.GeoIPPath)
	if err != nil {
		a.logger.WithError(err).WithField("path", a.cfg.GeoIPPath).Warn("geoip database unavailable")
		return nil
	}
	return reader
}

func (a *app) loadTargets() *store.Targets {
	targets, err := store.LoadTargets(a.cfg.TargetsPath)
	if err != nil {
		a.logger.WithError(err).WithField("path", a.cfg.TargetsPath).Warn("targets registry unreadable")
		return nil
	}
	return targets
}

// newBuilder wires a dashboard builder. reader may be nil.
func (a *app) newBuilder(source dashboard.Source, reader *geo.Reader) (*dashboard.Builder, error) {
	return dashboard.NewBuilder(source, locatorOf(reader), a.loadTargets(), a.cfg, a.logger)
}

// locatorOf keeps a nil reader from becoming a non-nil interface.
func locatorOf(reader *geo.Reader) trace.Locator {
	if reader == nil {
		return nil
	}
	return reader
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
