package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/LinerHub/app/controllers"
	"github.com/ManuelReschke/LinerHub/app/repository"
	"github.com/ManuelReschke/LinerHub/internal/pkg/cache"
	"github.com/ManuelReschke/LinerHub/internal/pkg/database"
	"github.com/ManuelReschke/LinerHub/internal/pkg/env"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LinerHub/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/LinerHub/internal/pkg/payments"
	"github.com/ManuelReschke/LinerHub/internal/pkg/router"
)

const (
	taskPayoutOrphanSweep   = "payout_orphan_sweep"
	taskWebhookCounterFlush = "webhook_counter_flush"
	counterFlushInterval    = 5 * time.Second
	shutdownTimeout         = 10 * time.Second
)

func main() {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	manager.Stop()
	if err := counter.FlushAll(database.GetDB()); err != nil {
		log.Printf("Final counter flush failed: %v", err)
	}
}

// NewApplication wires storage, payments and the job queue behind a fiber app.
// The returned manager is not started yet.
func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()

	config := payments.NewSettingsConfigProvider(repos.ProviderCredential)
	health := payments.NewHealthTracker(repos.ProviderHealth)
	reconciler := payments.NewReconciler(db, payments.NewDatabaseNotifier(repos.Notification), repos.PayoutOrphan)
	payments.RegisterJobHandlers(queue, payments.NewStripeRouter(queue), payments.NewPayPalRouter(queue), reconciler)

	sweepInterval := 15 * time.Minute
	if settings, err := repos.Setting.Get(); err == nil {
		sweepInterval = settings.GetPayoutSweepInterval()
	}
	sweeper := payments.NewOrphanSweeper(repos.PayoutOrphan, queue)
	manager.RegisterPeriodic(taskPayoutOrphanSweep, sweepInterval, sweeper.Sweep)
	manager.RegisterPeriodic(taskWebhookCounterFlush, counterFlushInterval, func(ctx context.Context) error {
		return counter.FlushAll(db)
	})

	// init fiber app; webhook bodies are small JSON documents
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Webhooks: controllers.NewWebhookController(
			payments.NewStripeVerifier(config),
			payments.NewPayPalVerifier(config),
			health,
			queue,
		),
		AdminPayments: controllers.NewAdminPaymentsController(health, queue, repos.PayoutOrphan).
			WithTaskRunner(manager),
		// database 1 keeps limiter keys apart from the queue
		LimiterStorage: cache.NewFiberStorage(1),
	})

	return app, manager
}
