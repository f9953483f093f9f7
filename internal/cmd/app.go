package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/host"
	"github.com/hytalede/statistics/internal/httphelper"
	"github.com/hytalede/statistics/internal/plugin"
	"github.com/hytalede/statistics/internal/reporter"
	"github.com/hytalede/statistics/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// hostRefreshInterval is how often the simulated host state is copied into the cache.
const hostRefreshInterval = 10 * time.Second

// Statistics is the standalone runner. It plays the role of the host process around the plugin.
type Statistics struct {
	store     *config.Store
	settings  config.Settings
	registry  *prometheus.Registry
	metrics   *reporter.Metrics
	sentry    *sentry.Client
	logCloser func()
}

type appOpts struct {
	intervalSeconds int64
	pingAttempts    int
}

func NewStatistics(ctx context.Context, root *rootOpts, opts appOpts) (*Statistics, error) {
	store := config.NewStore(root.cfgFile)

	if opts.intervalSeconds != 0 {
		store.OverrideInterval(opts.intervalSeconds)
	}

	if root.logLevel != "" {
		store.OverrideLogLevel(log.Level(root.logLevel))
	}

	settings, errSettings := store.Load()
	if errSettings != nil {
		slog.Error("Failed to read statistics config", log.ErrAttr(errSettings))

		return nil, errSettings
	}

	app := &Statistics{
		store:     store,
		settings:  settings,
		registry:  prometheus.NewRegistry(),
		logCloser: func() {},
	}

	app.setupSentry()
	app.logCloser = log.MustCreateLogger(ctx, settings.Logging.File, settings.Logging.Level, app.sentry != nil, BuildVersion)

	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, errMetrics := reporter.NewMetrics(app.registry)
	if errMetrics != nil {
		return nil, errMetrics
	}

	app.metrics = metrics

	slog.Debug("Loaded statistics config", slog.Any("config", settings.Reporter))

	return app, nil
}

func (s *Statistics) setupSentry() {
	dsn := s.settings.Logging.SentryDSN
	if dsn == "" {
		return
	}

	sentryClient, errSentry := log.NewSentryClient(dsn, false, 0.25, BuildVersion, "standalone")
	if errSentry != nil {
		slog.Error("Failed to setup sentry client", log.ErrAttr(errSentry))

		return
	}

	s.sentry = sentryClient
}

func (s *Statistics) newPlugin(adapter host.Adapter, pingAttempts int) (*plugin.Plugin, error) {
	provider, errProvider := host.NewProvider(adapter)
	if errProvider != nil {
		return nil, errProvider
	}

	reporterOpts := []reporter.Option{reporter.WithMetrics(s.metrics)}
	if pingAttempts > 0 {
		reporterOpts = append(reporterOpts, reporter.WithPingAttempts(pingAttempts))
	}

	return plugin.New(s.store, provider, plugin.WithReporterOptions(reporterOpts...))
}

// Serve runs the reporter until the context is cancelled or SIGINT/SIGTERM is received. The host
// is simulated and refreshed into a cache the reporter reads from.
func (s *Statistics) Serve(rootCtx context.Context, opts appOpts) error {
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	simulated, errSimulated := newSimulatedAdapter(simulatedMaxPlayers, "v1.0.0-alpha")
	if errSimulated != nil {
		return errSimulated
	}

	cache := host.NewCachedAdapter()
	refresher := host.NewRefresher(simulated, cache, hostRefreshInterval)
	refresher.Update()

	statsPlugin, errPlugin := s.newPlugin(cache, opts.pingAttempts)
	if errPlugin != nil {
		return errPlugin
	}

	defer statsPlugin.Close()

	if errStart := statsPlugin.Start(); errStart != nil {
		slog.Error("Failed to start statistics plugin", log.ErrAttr(errStart))

		return errStart
	}

	slog.Info("Statistics reporter started successfully. Press Ctrl+C to stop.")

	errGroup, groupCtx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		refresher.Start(groupCtx)

		return nil
	})

	if s.settings.HTTP.Enabled {
		errGroup.Go(func() error {
			return s.serveHTTP(groupCtx, statsPlugin)
		})
	}

	errGroup.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Shutdown signal received, stopping statistics reporter")

		return nil
	})

	return errGroup.Wait()
}

func (s *Statistics) serveHTTP(ctx context.Context, statsPlugin *plugin.Plugin) error {
	router := httphelper.CreateRouter(httphelper.RouterOpts{
		HTTPLogEnabled: s.settings.Logging.HTTPEnabled,
		LogLevel:       s.settings.Logging.HTTPLevel,
		Mode:           gin.ReleaseMode,
		SentryDSN:      s.settings.Logging.SentryDSN,
		Version:        BuildVersion,
		PProfEnabled:   s.settings.HTTP.PProf,
		CORSOrigins:    s.settings.HTTP.CORSOrigins,
		Registry:       s.registry,
	})

	plugin.NewHandler(router, statsPlugin)

	httpServer := httphelper.NewServer(s.settings.HTTP.Listen, router)

	go func() {
		<-ctx.Done()

		slog.Info("Shutting down HTTP service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if errShutdown := httpServer.Shutdown(shutdownCtx); errShutdown != nil { //nolint:contextcheck
			slog.Error("Error shutting down http service", log.ErrAttr(errShutdown))
		}
	}()

	slog.Info("Starting HTTP server", slog.String("address", s.settings.HTTP.Listen))

	if errServe := httpServer.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		slog.Error("HTTP server returned error", log.ErrAttr(errServe))

		return errServe
	}

	return nil
}

func (s *Statistics) Close() {
	if s.sentry != nil {
		s.sentry.Flush(2 * time.Second)
	}

	s.logCloser()
}
