package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/playeconomy/identity/internal/api/handler"
	"github.com/playeconomy/identity/internal/api/middleware"
	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/ports"
	"github.com/playeconomy/identity/internal/infrastructure/http/handlers"
	"github.com/playeconomy/identity/internal/pkg/config"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config *config.Config
	Users  ports.UserService
	Checks []handlers.Check
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// It registers Prometheus collectors, so call it once per process.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     deps.Config.AllowedOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.Use(echoprometheus.NewMiddleware("identity_http"))

	// --- Dependencies ---
	userHandler := handler.NewUserHandler(deps.Users, deps.Log)
	debugHandler := handler.NewDebugHandler(deps.Users)
	authMiddleware := middleware.Auth(deps.Config.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- User administration ---
	users := e.Group("/users", authMiddleware, adminOnly)
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Diagnostics ---
	e.GET("/debug/claims", debugHandler.Claims, authMiddleware)
	e.GET("/debug/roles", debugHandler.Roles, authMiddleware, adminOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness
	e.GET("/metrics", echoprometheus.NewHandler())

	if deps.Config.IsDevelopment() {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Str("request_id", v.RequestID).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
