package server

import (
	"time"

	"github.com/bugtracker/bug-service/handlers"
	"github.com/bugtracker/bug-service/internal/bug/handler"
	"github.com/bugtracker/bug-service/internal/bug/service"
	"github.com/bugtracker/bug-service/internal/config"
	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/bugtracker/bug-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps carries everything the HTTP layer needs. Service and Config are required.
type Deps struct {
	Config  *config.Config
	Service service.Service

	// Redis backs the shared rate limiter when RATE_LIMIT_USE_REDIS is set.
	Redis *redis.Client

	// Checks are reported by /ready.
	Checks map[string]handlers.Check

	// Gatherer is exposed at /metrics; defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Started  time.Time
}

// NewRouter assembles the gin engine: middleware chain, bug API under /api and
// the operational endpoints. Rate limiting applies to /api only.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if !cfg.Server.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORS())

	started := d.Started
	if started.IsZero() {
		started = time.Now()
	}
	handlers.RegisterHealth(r, d.Checks, started)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r)
	handlers.RegisterUI(r)

	// probes and scrapes stay outside the limiter
	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(rateLimiter(cfg.RateLimit, d.Redis))
	}
	api.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	handler.RegisterBugRoutes(api, d.Service, cfg.Server.Development())

	return r
}

func rateLimiter(rl config.RateLimitConfig, client *redis.Client) gin.HandlerFunc {
	if rl.UseRedis && client != nil {
		win := time.Duration(rl.WindowSeconds) * time.Second
		logger.Infof("rate limiter: redis (%v rps, burst %d, window %s)", rl.RPS, rl.Burst, win)
		return middleware.RedisRateLimitMiddleware(client, rl.RPS, rl.Burst, win)
	}
	logger.Infof("rate limiter: memory (%v rps, burst %d)", rl.RPS, rl.Burst)
	return middleware.RateLimitMiddleware(rl.RPS, rl.Burst)
}
