package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/LinerHub/app/controllers"
	"github.com/ManuelReschke/LinerHub/app/repository"
	"github.com/ManuelReschke/LinerHub/internal/pkg/cache"
	"github.com/ManuelReschke/LinerHub/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LinerHub/internal/pkg/payments"
)

func newTestApp(t *testing.T, adminPassword string) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})

	repos := repository.NewRepositories(dbtest.New(t))
	cfg := payments.StaticConfigProvider{StripeConfig: payments.StripeConfig{WebhookSecret: "whsec_router"}}
	health := payments.NewHealthTracker(repos.ProviderHealth)
	queue := jobqueue.NewQueueWithClient(client, 1)

	app := fiber.New()
	setup(app,
		NewHttpRouter(controllers.NewWebhookController(payments.NewStripeVerifier(cfg), payments.NewPayPalVerifier(cfg), health, queue)),
		&AdminRouter{
			payments: controllers.NewAdminPaymentsController(health, queue, repos.PayoutOrphan),
			user:     "ops",
			password: adminPassword,
		},
	)
	return app
}

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestRoutes_Webhooks(t *testing.T) {
	app := newTestApp(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	assert.Equal(t, fiber.StatusBadRequest, status(t, app, req), "unsigned stripe delivery")

	// no paypal credentials configured, so the event is accepted unverified
	req = httptest.NewRequest(http.MethodPost, "/webhooks/paypal", strings.NewReader(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`))
	assert.Equal(t, fiber.StatusAccepted, status(t, app, req))

	assert.Equal(t, fiber.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil)))
}

func TestRoutes_AdminRequiresBasicAuth(t *testing.T) {
	app := newTestApp(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/admin/payments/health", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/admin/payments/health", nil)
	req.SetBasicAuth("ops", "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/admin/payments/health", nil)
	req.SetBasicAuth("ops", "secret")
	assert.Equal(t, fiber.StatusOK, status(t, app, req))
}

func TestRoutes_AdminDisabledWithoutPassword(t *testing.T) {
	app := newTestApp(t, "")

	req := httptest.NewRequest(http.MethodGet, "/admin/payments/health", nil)
	req.SetBasicAuth("ops", "")
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, req))
}
