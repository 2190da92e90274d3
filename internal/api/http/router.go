package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/api/http/handlers"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/observability"
)

// APIPrefix is the mount point of every route.
const APIPrefix = "/api/v1"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Clinicians     *handlers.ClinicianHandler
	Patients       *handlers.PatientHandler
	Programs       *handlers.ProgramHandler
	Profile        *handlers.ProfileHandler
	AuthMiddleware *auth.AuthMiddleware
}

// NewApp builds the fiber app with the global middlewares attached.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
		// params, headers and query values end up in stored records
		Immutable: true,
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group(APIPrefix)

	status := api.Group("/status")
	status.Get("/", cfg.Health.Status)
	status.Get("/live", cfg.Health.Live)
	status.Get("/ready", cfg.Health.Ready)
	status.Get("/metrics", cfg.Health.Metrics)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/verify/:id", cfg.Auth.VerifyAccount)
	authGroup.Post("/password/forgot", cfg.Auth.ForgotPassword)
	authGroup.Get("/password/:id", cfg.Auth.CheckPasswordReset)
	authGroup.Post("/password/:id/reset", cfg.Auth.ResetPassword)

	gate := cfg.AuthMiddleware.Handle

	doctorOnly := auth.Authorize(domain.RoleDoctor)
	anyRole := auth.Authorize(domain.RoleDoctor, domain.RolePatient)

	api.Post("/doctors", cfg.Clinicians.Register)
	api.Get("/doctors", gate, auth.RequireAnyRole(), cfg.Clinicians.List)
	api.Get("/doctors/:id", gate, auth.RequireAnyRole(), cfg.Clinicians.Get)
	api.Put("/doctors/:id", gate, doctorOnly, cfg.Clinicians.Update)
	api.Delete("/doctors/:id", gate, doctorOnly, cfg.Clinicians.Deactivate)

	api.Get("/patients", gate, doctorOnly, cfg.Patients.List)
	api.Post("/patients", gate, doctorOnly, cfg.Patients.Register)
	api.Get("/patients/:id", gate, anyRole, cfg.Patients.Get)
	api.Put("/patients/:id", gate, anyRole, cfg.Patients.Update)
	api.Post("/patients/:id/password", gate, auth.Authorize(domain.RolePatient), cfg.Patients.ChangePassword)
	api.Delete("/patients/:id", gate, anyRole, cfg.Patients.Deactivate)
	api.Post("/patients/:id/doctors", gate, doctorOnly, cfg.Patients.AssignDoctor)
	api.Delete("/patients/:id/doctors/:doctorId", gate, doctorOnly, cfg.Patients.RemoveDoctor)

	programs := api.Group("/programs", gate)
	programs.Get("/", doctorOnly, cfg.Programs.List)
	programs.Post("/", doctorOnly, cfg.Programs.Create)
	programs.Get("/:id", anyRole, cfg.Programs.Get)
	programs.Get("/:id/stats", doctorOnly, cfg.Programs.Stats)
	programs.Put("/:id", doctorOnly, cfg.Programs.Update)
	programs.Delete("/:id", doctorOnly, cfg.Programs.Deactivate)
	programs.Post("/:id/participants", doctorOnly, cfg.Programs.AddParticipant)
	programs.Put("/:id/participants/:patientId", doctorOnly, cfg.Programs.UpdateParticipant)
	programs.Delete("/:id/participants/:patientId", doctorOnly, cfg.Programs.RemoveParticipant)

	api.Get("/profile", gate, auth.RequireAnyRole(), cfg.Profile.Get)
}
