package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LinerHub/app/controllers"
)

// Router installs a group of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies bundles the handlers the routes are bound to
type Dependencies struct {
	Webhooks      *controllers.WebhookController
	AdminPayments *controllers.AdminPaymentsController
	// LimiterStorage backs the admin rate limiter; nil keeps counts in memory
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps.Webhooks), NewAdminRouter(deps.AdminPayments, deps.LimiterStorage))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
