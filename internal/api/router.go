package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/insureportal/portal-api/internal/api/handler"
	"github.com/insureportal/portal-api/internal/api/middleware"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
	"github.com/insureportal/portal-api/internal/infrastructure/http/handlers"
)

// Deps bundles everything the router needs. Construction of the concrete
// services happens in cmd/server.
type Deps struct {
	AuthService ports.AuthService
	Intake      ports.IntakeService
	Policies    ports.RecordService[*domain.Policy]
	Claims      ports.RecordService[*domain.Claim]
	Complaints  ports.RecordService[*domain.Complaint]
	Limiter     ports.RateLimiter
	Cookie      handler.CookieConfig
	Readiness   *handlers.HealthDependenciesHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddleware("portal"))

	// --- Ops surface (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	if deps.Readiness != nil {
		e.GET("/health/ready", deps.Readiness.Readiness)
	}
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Cookie)
	cookieName := authHandler.CookieName()
	limit := middleware.RateLimit(deps.Limiter)

	// --- Public auth routes: a valid token only switches the rate limit key ---
	public := e.Group("/auth", middleware.OptionalAuth(deps.AuthService, cookieName, log), limit)
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/logout", authHandler.Logout)

	// --- Authenticated routes ---
	gate := []echo.MiddlewareFunc{middleware.Authenticate(deps.AuthService, cookieName, log), limit}

	e.GET("/auth/me", authHandler.Me, gate...)
	e.PATCH("/auth/me", authHandler.UpdateProfile, gate...)
	e.PUT("/auth/password", authHandler.ChangePassword, gate...)

	adminHandler := handler.NewAdminHandler(deps.AuthService)
	admin := e.Group("/admin/users", append(gate, middleware.RequireRoles(domain.RoleAdmin))...)
	admin.POST("", adminHandler.CreateUser)
	admin.GET("/:id", adminHandler.GetUser)
	admin.PUT("/:id/status", adminHandler.SetStatus)
	admin.PUT("/:id/permissions", adminHandler.SetPermissions)

	policyHandler := handler.NewPolicyHandler(deps.Intake, deps.Policies)
	policies := e.Group("/policies", gate...)
	policies.POST("", policyHandler.Create,
		middleware.RequireRoles(domain.RoleAgent),
		middleware.RequirePermissions(domain.AllOf, domain.PermPoliciesWrite))
	policies.GET("", policyHandler.List, middleware.RequirePermissions(domain.AllOf, domain.PermPoliciesRead))
	policies.GET("/:id", policyHandler.Get,
		middleware.RequireOwnership[*domain.Policy](deps.Policies.Load, "id", domain.RoleAgent))
	policies.PUT("/:id/status", policyHandler.UpdateStatus,
		middleware.RequireRoles(domain.RoleAgent),
		middleware.RequirePermissions(domain.AllOf, domain.PermPoliciesWrite))

	claimHandler := handler.NewClaimHandler(deps.Intake, deps.Claims)
	claims := e.Group("/claims", gate...)
	claims.POST("", claimHandler.Create, middleware.RequirePermissions(domain.AllOf, domain.PermClaimsCreate))
	claims.GET("", claimHandler.List, middleware.RequirePermissions(domain.AllOf, domain.PermClaimsRead))
	claims.GET("/:id", claimHandler.Get,
		middleware.RequireOwnership[*domain.Claim](deps.Claims.Load, "id", domain.RoleAgent))
	claims.PUT("/:id/status", claimHandler.UpdateStatus,
		middleware.RequirePermissions(domain.AllOf, domain.PermClaimsReview))

	complaintHandler := handler.NewComplaintHandler(deps.Intake, deps.Complaints)
	complaints := e.Group("/complaints", gate...)
	complaints.POST("", complaintHandler.Create, middleware.RequirePermissions(domain.AllOf, domain.PermComplaintsCreate))
	complaints.GET("", complaintHandler.List, middleware.RequirePermissions(domain.AllOf, domain.PermComplaintsRead))
	complaints.GET("/:id", complaintHandler.Get,
		middleware.RequireOwnership[*domain.Complaint](deps.Complaints.Load, "id", domain.RoleAgent))
	complaints.PUT("/:id/status", complaintHandler.UpdateStatus,
		middleware.RequirePermissions(domain.AnyOf, domain.PermComplaintsResolve, domain.PermUsersManage))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
