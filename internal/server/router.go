package server

import (
	"context"

	"github.com/abduss/msc/internal/auth"
	"github.com/abduss/msc/internal/config"
	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/metrics"
	"github.com/abduss/msc/internal/quota"
	"github.com/abduss/msc/internal/state"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type quotaReporter interface {
	Status(ctx context.Context, bucket string) (quota.Status, error)
}

type jobTrigger interface {
	Jobs() []string
	Running(name string) bool
	Trigger(name string) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	DB          pinger
	ObjectStore pinger
	Redis       redis.UniversalClient
	State       state.Store
	Monitor     quotaReporter
	Scheduler   jobTrigger
	Auth        *auth.Verifier
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.State != nil && deps.Monitor != nil {
		registerStatusRoutes(api, deps.State, deps.Monitor)
	}
	if deps.Scheduler != nil {
		registerJobRoutes(api, deps.Scheduler, deps.Auth)
	}

	return router
}
