package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/metrics"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/reportstore"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/server"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// serveListen overrides server.listen from the config.
var serveListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validator over HTTP",
		Long: `Starts the HTTP API of the validator.

Endpoints:
  GET  /healthz                  liveness probe
  GET  /metrics                  Prometheus metrics (server.metricsPath)
  GET  /api/v1/apis              registered suites
  GET  /api/v1/parameters        parameters of ?api=&endpoint=&version=
  POST /api/v1/validate          run one validation (JSON or form body)
  GET  /api/v1/reports[/{id}]    stored reports (reports.dir)

A catalogue file is reloaded on change when catalogue.watch is set; a
catalogue URL is re-fetched every catalogue.refreshInterval. Readiness is
reported to systemd when run as a notify service.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveListen, "listen", "", "listen address, overrides server.listen")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(true)
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.InitForServer(logging.Format(cfg.Logging.Format), level, os.Stderr)
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deps, err := buildValidator(ctx, cfg, suite.WithObserver(m))
	if err != nil {
		return err
	}
	deps.catalogue.OnReload(func(*catalogue.Catalogue) { m.CatalogueReloaded(nil) })
	deps.catalogue.OnReloadFailure(m.CatalogueReloaded)

	switch {
	case cfg.Catalogue.Path != "" && cfg.Catalogue.Watch:
		w := catalogue.NewWatcher(cfg.Catalogue.Path, deps.catalogue)
		if err := w.Start(); err != nil {
			return fmt.Errorf("failed to watch catalogue: %w", err)
		}
		defer func() {
			if err := w.Stop(); err != nil {
				logging.Warn("Serve", "Failed to stop catalogue watcher: %v", err)
			}
		}()
	case cfg.Catalogue.Path == "" && cfg.Catalogue.RefreshInterval > 0:
		src := catalogue.NewRemoteSource(cfg.Catalogue.URL, nil)
		go deps.catalogue.Refresh(ctx, src, cfg.Catalogue.RefreshInterval)
	}

	var store *reportstore.Store
	if cfg.Reports.Dir != "" {
		store = reportstore.New(cfg.Reports.Dir)
	}
	srv, err := server.New(server.Options{
		Validator:   deps.validator,
		Store:       store,
		Metrics:     m,
		MetricsPath: cfg.Server.MetricsPath,
	})
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx, cfg.Server.Listen, func() {
		sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
		switch {
		case err != nil:
			logging.Warn("Serve", "Failed to notify systemd: %v", err)
		case sent:
			logging.Debug("Serve", "Notified systemd of readiness")
		}
	})
}
