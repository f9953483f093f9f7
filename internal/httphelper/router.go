package httphelper

import (
	"log/slog"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/hytalede/statistics/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	sloggin "github.com/samber/slog-gin"
)

type RouterOpts struct {
	HTTPLogEnabled bool
	LogLevel       log.Level
	Mode           string
	SentryDSN      string
	Version        string
	PProfEnabled   bool
	CORSOrigins    []string
	// Registry enables the /metrics route and request instrumentation when set.
	Registry *prometheus.Registry
}

// CreateRouter constructs a new router using gin.Engine with the provided RouterOpts.
func CreateRouter(opts RouterOpts) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryHandler())
	engine.Use(errorHandler())
	engine.Use(useSecure(gin.Mode() != gin.ReleaseMode))

	if opts.HTTPLogEnabled {
		useSloggin(engine, opts.LogLevel)
	}

	if opts.SentryDSN != "" {
		useSentry(engine, opts.Version)
	}

	if opts.PProfEnabled {
		pprof.Register(engine)
	}

	if len(opts.CORSOrigins) > 0 {
		useCors(engine, opts.CORSOrigins)
	}

	if opts.Registry != nil {
		usePrometheus(engine, opts.Registry)
	}

	return engine
}

func useCors(engine *gin.Engine, origins []string) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowMethods = []string{"GET", "POST"}
	corsConfig.AllowWildcard = true

	engine.Use(cors.New(corsConfig))
}

func usePrometheus(engine *gin.Engine, registry *prometheus.Registry) {
	prom := ginprom.New(
		ginprom.Engine(engine),
		ginprom.Registry(registry),
		ginprom.Path("/metrics"),
		func(prom *ginprom.Prometheus) {
			prom.Namespace = "statistics"
			prom.Subsystem = "http"
		})
	engine.Use(prom.Instrument())
}

func useSloggin(engine *gin.Engine, level log.Level) {
	logConfig := sloggin.Config{
		DefaultLevel:     log.ToSlogLevel(level),
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
	}

	engine.Use(sloggin.NewWithConfig(slog.Default(), logConfig))
}
