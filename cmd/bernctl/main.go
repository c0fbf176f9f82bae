package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bern/internal/config"
	"bern/internal/logging"
	"bern/internal/metrics"
	bernapi "bern/pkg/bern"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd(out)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

// app carries the state shared by every subcommand.
type app struct {
	out io.Writer

	configPath string
	verbose    bool
	showStats  bool
	flags      config.Config

	cfg    *config.Config
	logger *zap.Logger
	client *bernapi.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "bernctl",
		Short:         "Evaluate plant community possibilities with the BERN model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.showStats, "metrics", false, "print collected metrics on exit")
	pf.StringVar(&a.flags.Store.Kind, "store", "", "store backend: memory|sqlite")
	pf.StringVar(&a.flags.Store.Path, "db-path", "", "sqlite database path")
	pf.IntVar(&a.flags.Workers, "workers", 0, "parallel workers (0 keeps the configured value)")
	pf.StringVar(&a.flags.Logging.Level, "log-level", "", "log level")
	pf.StringVar(&a.flags.Data.Dir, "data-dir", "", "directory the table paths are relative to")
	pf.StringVar(&a.flags.Data.Dimensions, "dimensions", "", "dimension table")
	pf.StringVar(&a.flags.Data.Taxa, "taxa", "", "taxon table")
	pf.StringVar(&a.flags.Data.Communities, "communities", "", "community table")
	pf.StringVar(&a.flags.Data.Links, "links", "", "community to taxon link table")
	pf.StringVar(&a.flags.Data.Sites, "sites", "", "site state table")

	root.AddCommand(
		newLoadCmd(a),
		newCommunityCmd(a),
		newOptimaCmd(a),
		newSitesCmd(a),
		newMatrixCmd(a),
		newWetnessCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.overlayFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	client, err := bernapi.New(bernapi.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.Path,
		Workers:   cfg.Workers,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.client = cfg, logger, client
	return nil
}

// overlayFlags applies the flags the user set explicitly over cfg.
func (a *app) overlayFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("store") {
		cfg.Store.Kind = a.flags.Store.Kind
	}
	if changed("db-path") {
		cfg.Store.Path = a.flags.Store.Path
	}
	if changed("workers") && a.flags.Workers > 0 {
		cfg.Workers = a.flags.Workers
	}
	if changed("log-level") {
		cfg.Logging.Level = a.flags.Logging.Level
	}
	paths := []struct {
		flag string
		dst  *string
		src  string
	}{
		{"data-dir", &cfg.Data.Dir, a.flags.Data.Dir},
		{"dimensions", &cfg.Data.Dimensions, a.flags.Data.Dimensions},
		{"taxa", &cfg.Data.Taxa, a.flags.Data.Taxa},
		{"communities", &cfg.Data.Communities, a.flags.Data.Communities},
		{"links", &cfg.Data.Links, a.flags.Data.Links},
		{"sites", &cfg.Data.Sites, a.flags.Data.Sites},
	}
	for _, p := range paths {
		if changed(p.flag) {
			*p.dst = p.src
		}
	}
}

func (a *app) teardown() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.showStats {
		errs = append(errs, metrics.Dump(a.out, prometheus.DefaultGatherer))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// open makes the data available: restored from a persistent store when it
// holds any, read from the configured tables otherwise.
func (a *app) open(ctx context.Context) error {
	if err := a.client.Init(ctx); err != nil {
		return err
	}
	err := a.client.Restore(ctx)
	if err == nil {
		a.logger.Debug("data restored from store", zap.String("store", a.cfg.Store.Kind))
		_, err = a.client.LoadSiteStates(a.cfg.Data)
		return err
	}
	if !errors.Is(err, bernapi.ErrNotLoaded) {
		return err
	}
	_, err = a.client.LoadFromTSV(a.cfg.Data, a.cfg.Dimensions)
	return err
}
