package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ManuelReschke/LinerHub/app/controllers"
	"github.com/ManuelReschke/LinerHub/internal/pkg/env"
)

type AdminRouter struct {
	payments *controllers.AdminPaymentsController
	storage  fiber.Storage
	user     string
	password string
}

func (a AdminRouter) InstallRouter(app *fiber.App) {
	if a.password == "" {
		log.Warn("[AdminRouter] ADMIN_PASSWORD not set, admin routes are disabled")
		app.Use("/admin", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusUnauthorized)
		})
		return
	}

	adminGroup := app.Group("/admin",
		limiter.New(limiter.Config{Max: 60, Expiration: time.Minute, Storage: a.storage}),
		basicauth.New(basicauth.Config{
			Users: map[string]string{a.user: a.password},
			Realm: "LinerHub Admin",
		}),
	)

	// Payment diagnostics
	adminGroup.Get("/payments/health", a.payments.HandleHealth)
	adminGroup.Post("/payments/tasks/:name", a.payments.HandleRunTask)

	// fiber metrics
	adminGroup.Get("/metrics", monitor.New())
}

// NewAdminRouter reads the basic auth pair from ADMIN_USER and ADMIN_PASSWORD.
func NewAdminRouter(payments *controllers.AdminPaymentsController, storage fiber.Storage) *AdminRouter {
	return &AdminRouter{
		payments: payments,
		storage:  storage,
		user:     env.GetEnv("ADMIN_USER", "admin"),
		password: env.GetEnv("ADMIN_PASSWORD", ""),
	}
}
