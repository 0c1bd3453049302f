package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultpay/vaultpay/internal/client"
	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/lock"
	"github.com/vaultpay/vaultpay/internal/middleware"
	"github.com/vaultpay/vaultpay/internal/purchase"
	"github.com/vaultpay/vaultpay/internal/ratelimit"
	"github.com/vaultpay/vaultpay/internal/store"
	"github.com/vaultpay/vaultpay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var backend store.Store
	if d.DB != nil {
		backend = store.NewPostgres(d.DB)
	} else {
		backend = store.NewInMemory()
	}

	limits := ratelimit.NewRegistry(ratelimit.Config{
		Capacity: d.Cfg.RateLimitCapacity,
		Period:   d.Cfg.RateLimitPeriod,
		Wait:     d.Cfg.RateLimitWait,
		IdleTTL:  d.Cfg.IdleTTL,
	})
	locks := lock.NewCoordinator(d.Cfg.LockWait, d.Cfg.IdleTTL)

	walletSvc := wallet.NewService(backend, limits, locks)
	purchaseSvc := purchase.NewService(backend, locks)

	var clientRepo client.Repository
	if d.DB != nil {
		clientRepo = client.NewPostgresRepository(d.DB)
	} else {
		clientRepo = client.NewMemoryRepository()
	}
	clientSvc := client.NewService(clientRepo)

	walletHandler := wallet.NewHandler(walletSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	clientHandler := client.NewHandler(clientSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, walletHandler)
	RegisterPurchaseRoutes(api, purchaseHandler)
	RegisterClientRoutes(api, clientHandler)

	return nil
}
