package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/requirehit/package/internal/logging"
	"github.com/requirehit/package/internal/progress"
	"github.com/requirehit/package/internal/service"
	"github.com/requirehit/package/internal/storage"
	"github.com/requirehit/package/pkg/pack"
)

var version = "dev"

type rootParams struct {
	logLevel  string
	logFormat string
}

func main() {
	var params rootParams

	root := &cobra.Command{
		Use:           "rhp",
		Short:         "Package asset build pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addLoggingFlags(root.PersistentFlags(), &params)

	root.AddCommand(
		buildCommand(&params),
		storeCommand(&params),
		runCommand(&params),
		versionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addLoggingFlags(flags *pflag.FlagSet, params *rootParams) {
	flags.StringVar(&params.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&params.logFormat, "log-format", logging.FormatText, "log format (text, json)")
}

func newLogger(params *rootParams) *logging.Logger {
	return logging.New(logging.Config{Level: params.logLevel, Format: params.logFormat})
}

func newPackage(root string, log *logging.Logger) (*pack.Package, error) {
	return pack.New(pack.Options{Root: root, Logger: log})
}

func buildCommand(params *rootParams) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build DIR",
		Short: "Build a package artifact from a source directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(params)

			p, err := newPackage(args[0], log)
			if err != nil {
				return err
			}

			a, err := p.Build(cmd.Context())
			if err != nil {
				return err
			}

			w := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := a.Write(w); err != nil {
				return err
			}

			log.Infof("Built package %q at revision %s (%d files).", p.Name(), a.Revision, len(a.Files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the artifact to a file instead of stdout")
	return cmd
}

func storeCommand(params *rootParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store DIR",
		Short: "Build a package artifact and upload it to the configured object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(params)
			ctx := cmd.Context()

			p, err := newPackage(args[0], log)
			if err != nil {
				return err
			}

			cfg := p.StorageConfig()
			if cfg == nil {
				return errors.New("package declares no object storage; add a storage section to the manifest")
			}

			store, err := storage.New(ctx, *cfg)
			if err != nil {
				return err
			}

			a, err := p.Build(ctx)
			if err != nil {
				return err
			}

			if err := p.Store(ctx, store); err != nil {
				return err
			}

			log.Infof("Stored package %q at revision %s.", p.Name(), a.Revision)
			return nil
		},
	}

	return cmd
}

type runParams struct {
	interval   time.Duration
	addr       string
	selectors  []string
	singleShot bool
	workers    int
	noProgress bool
}

func runCommand(params *rootParams) *cobra.Command {
	var rp runParams

	cmd := &cobra.Command{
		Use:   "run DIR [DIR...]",
		Short: "Periodically rebuild and upload packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(params)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			selector, err := service.NewSelector(rp.selectors)
			if err != nil {
				return err
			}

			bar := progress.New(!rp.noProgress && rp.singleShot, "building")

			svc := service.New().
				WithLogger(log).
				WithProgress(bar).
				WithSelector(selector).
				WithInterval(rp.interval).
				WithSingleShot(rp.singleShot).
				WithWorkers(rp.workers)

			for _, dir := range args {
				p, err := newPackage(dir, log)
				if err != nil {
					return err
				}

				var store storage.ObjectStorage
				if cfg := p.StorageConfig(); cfg != nil {
					if store, err = storage.New(ctx, *cfg); err != nil {
						return err
					}
				} else {
					log.Warnf("Package %q declares no object storage, building only.", p.Name())
				}

				svc.Add(p, store)
			}

			if rp.addr != "" {
				go serveMetrics(ctx, log, rp.addr)
			}

			err = svc.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&rp.interval, "interval", 30*time.Second, "rebuild interval")
	flags.StringVar(&rp.addr, "addr", "", "listen address for the metrics endpoint (disabled when empty)")
	flags.StringSliceVar(&rp.selectors, "package", nil, "glob selecting package names to run (repeatable)")
	flags.BoolVar(&rp.singleShot, "single-shot", false, "build every package once and exit")
	flags.IntVar(&rp.workers, "workers", 4, "number of concurrent package workers")
	flags.BoolVar(&rp.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func serveMetrics(ctx context.Context, log *logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Serving metrics on %s.", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
