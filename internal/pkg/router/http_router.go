package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LinerHub/app/controllers"
)

type HttpRouter struct {
	webhooks *controllers.WebhookController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Provider webhooks (no CSRF, signature-verified in controller)
	hooks := app.Group("/webhooks")
	hooks.Post("/stripe", h.webhooks.HandleStripeWebhook)
	hooks.Post("/paypal", h.webhooks.HandlePayPalWebhook)
}

func NewHttpRouter(webhooks *controllers.WebhookController) *HttpRouter {
	return &HttpRouter{webhooks: webhooks}
}
