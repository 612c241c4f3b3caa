package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/victornnamdii/wallet-service/internal/auth"
	"github.com/victornnamdii/wallet-service/internal/config"
	"github.com/victornnamdii/wallet-service/internal/funding"
	"github.com/victornnamdii/wallet-service/internal/identity"
	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/middleware"
	"github.com/victornnamdii/wallet-service/internal/notification"
	"github.com/victornnamdii/wallet-service/internal/payments"
	"github.com/victornnamdii/wallet-service/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. Store, Users
// and Notifier override the defaults derived from DB.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Store    ledger.Store
	Users    identity.Repository
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.DB == nil && d.Store == nil && !d.Cfg.IsDevelopment() {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	verifier, err := auth.NewVerifier(d.Cfg.JWTSecret)
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	store := d.Store
	if store == nil {
		if d.DB != nil {
			store = ledger.NewPostgresStore(d.DB, d.Cfg.Ledger.LockTimeout)
		} else {
			d.Logger.Warn("no database configured, using in-memory ledger")
			store = ledger.NewInMemory(d.Cfg.Ledger.LockTimeout)
		}
	}

	users := d.Users
	if users == nil {
		if d.DB != nil {
			users = identity.NewPostgresRepository(d.DB)
		} else {
			users = identity.NewMemoryRepository()
		}
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	runner := ledger.NewRunner(store, d.Logger,
		ledger.WithMaxAttempts(d.Cfg.Ledger.MaxAttempts),
		ledger.WithBackoff(d.Cfg.Ledger.RetryBackoff),
	)
	identitySvc := identity.NewService(users)
	engine := ledger.NewEngine(identitySvc)

	walletSvc := wallet.NewService(runner, engine, identitySvc, d.Cfg.Ledger.DefaultCurrency, d.Logger)
	if linker, ok := users.(wallet.OwnerLinker); ok {
		walletSvc.WithLinker(linker)
	}
	fundingSvc := funding.NewService(runner, engine, d.Logger)
	paymentSvc := payments.NewService(runner, engine, notifier, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	protected := api.Group("",
		middleware.JWTAuth(verifier, users),
		middleware.MutationRateLimit(d.Cache, d.Cfg.MutationsPerMinute),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Cfg.IdempotencyRequired, d.Logger),
	)
	RegisterIdentityRoutes(protected, identity.NewHandler(identitySvc))
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc))
	RegisterFundingRoutes(protected, funding.NewHandler(fundingSvc))
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc))

	return nil
}
