package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/infra/config"
	"github.com/arklim/clientdesk/internal/transport/http/handlers"
	"github.com/arklim/clientdesk/internal/transport/http/middleware"
	"github.com/arklim/clientdesk/internal/usecase"
)

// Dependencies aggregates everything the HTTP surface needs.
type Dependencies struct {
	Config *config.AppConfig
	Logger *zap.Logger

	AuthService    *usecase.AuthService
	SessionService *usecase.SessionService

	SessionStore port.SessionStore
	Accounts     port.AccountResolver

	RateLimiter *middleware.RateLimiter
	Registry    prometheus.Registerer

	DatabaseCheck handlers.ReadinessCheck
	CacheCheck    handlers.ReadinessCheck
}

// Register builds the Gin engine with the full middleware chain and routes.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.EnrichContext())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(deps.Logger))

	metrics, err := middleware.NewHTTPMetrics(deps.Registry, deps.Config.App.Name)
	if err != nil {
		return nil, err
	}
	engine.Use(metrics.Handler())

	healthHandler := handlers.NewHealthHandler(deps.Logger,
		handlers.WithReadinessCheck("postgres", deps.DatabaseCheck),
		handlers.WithReadinessCheck("redis", deps.CacheCheck),
	)
	engine.GET("/healthz", healthHandler.Status)
	engine.GET("/readyz", healthHandler.Readiness)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionHandler := handlers.NewSessionHandler(deps.AuthService, deps.SessionService, deps.Config.Session, deps.Logger)
	accountHandler := handlers.NewAccountHandler(deps.Logger)

	cookieAuth := middleware.Authenticate(deps.Logger,
		middleware.CookieExtractor(deps.SessionStore, deps.Config.Session.CookieName))
	bearerAuth := middleware.Authenticate(deps.Logger,
		middleware.BearerExtractor(deps.SessionStore))
	anyAuth := middleware.Authenticate(deps.Logger,
		middleware.CookieExtractor(deps.SessionStore, deps.Config.Session.CookieName),
		middleware.BearerExtractor(deps.SessionStore))

	api := engine.Group("/api/v1")
	{
		login := sessionHandler.Login
		if deps.RateLimiter != nil {
			api.POST("/session",
				deps.RateLimiter.Limit(deps.Config.RateLimit.LoginMaxAttempts, deps.Config.RateLimit.Window),
				login)
		} else {
			api.POST("/session", login)
		}

		api.GET("/session", cookieAuth, middleware.RequireAuthentication(), sessionHandler.Describe)
		api.PUT("/session", bearerAuth, middleware.RequireAuthentication(), sessionHandler.Refresh)
		api.DELETE("/session", bearerAuth, middleware.RequireAuthentication(), sessionHandler.Logout)

		api.GET("/account", anyAuth,
			middleware.RequireAuthentication(),
			middleware.IncludeAccount(deps.Accounts, deps.Logger),
			accountHandler.Describe)

		admin := api.Group("/admin", anyAuth, middleware.RequireRoles("ADMIN"))
		{
			admin.POST("/impersonate", sessionHandler.Impersonate)
		}
	}

	return engine, nil
}
