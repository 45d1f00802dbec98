package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/tripeco/identity-service/internal/api/docs"
	"github.com/tripeco/identity-service/internal/api/handler"
	"github.com/tripeco/identity-service/internal/api/middleware"
	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

const (
	metricsSubsystem = "identity"
	loginBodyLimit   = "16K"
)

// Deps is everything the router needs, already constructed.
type Deps struct {
	Log    zerolog.Logger
	Users  ports.UserService
	Login  *handler.LoginPipeline
	Tokens middleware.TokenVerifier

	UserHeader   string
	TokenHeader  string
	EnforceRoles bool

	Checks []handler.DependencyCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
// It registers Prometheus collectors, so call it once per process.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware(metricsSubsystem))

	// --- Login ---
	e.POST("/login", d.Login.Handle, echomiddleware.BodyLimit(loginBodyLimit))

	// --- Users ---
	users := handler.NewUserHandler(d.Users)
	admin := middleware.RequireRole(d.EnforceRoles, domain.RoleAdmin)

	g := e.Group("/users", middleware.Identity(middleware.IdentityConfig{
		UserHeader:  d.UserHeader,
		TokenHeader: d.TokenHeader,
		Tokens:      d.Tokens,
	}))
	g.POST("", users.Register, admin)
	g.GET("", users.List, admin)
	g.GET("/current", users.Current)
	g.GET("/me", users.Me)
	g.PATCH("/password", users.ChangePassword)
	g.GET("/:id", users.Get, admin)
	g.PATCH("/:id", users.Update, admin)
	g.DELETE("/:id", users.Delete, admin)
	g.PATCH("/:id/password", users.ResendPassword, admin)

	// --- Health probes ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks...).Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
