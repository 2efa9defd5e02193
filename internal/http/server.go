package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/config"
	"github.com/jmehdipour/judgment-gateway/internal/http/middleware"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
)

// Deps are the services the HTTP surface exposes. ExportLog and Redis are
// optional.
type Deps struct {
	Ingest    Ingester
	Export    Exporter
	Sweeper   Sweeper
	ExportLog repository.ExportLogRepository
	Redis     *redis.Client
	Log       *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	// echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(gommonLevel(cfg.Log.Level))
	log.SetLevel(gommonLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.Auth.APIKeys)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:issuer:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	loc := cfg.Export.Location()

	// routes
	v1 := e.Group("/v1", authMW)
	v1.POST("/judgments", registerJudgmentHandler(d.Ingest), rlMW)

	admin := v1.Group("/admin", middleware.AdminOnly())
	admin.POST("/export", exportHandler(d.Export, loc))
	admin.POST("/retention", retentionHandler(d.Sweeper, cfg.Retention.MinAgeDays))
	if d.ExportLog != nil {
		admin.GET("/exports", listExportsHandler(d.ExportLog, loc))
	}

	return &Server{e: e, log: logger.OrNop(d.Log)}
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func gommonLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
