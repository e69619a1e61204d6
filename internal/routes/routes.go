package routes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/boot-pay/boot_pay/internal/association"
	"github.com/boot-pay/boot_pay/internal/bus"
	"github.com/boot-pay/boot_pay/internal/config"
	"github.com/boot-pay/boot_pay/internal/events"
	"github.com/boot-pay/boot_pay/internal/exchange"
	"github.com/boot-pay/boot_pay/internal/fiatledger"
	"github.com/boot-pay/boot_pay/internal/middleware"
	"github.com/boot-pay/boot_pay/internal/payment"
	"github.com/boot-pay/boot_pay/internal/purchase"
	"github.com/boot-pay/boot_pay/internal/rate"
	"github.com/boot-pay/boot_pay/internal/transaction"
	"github.com/boot-pay/boot_pay/internal/wallet"
	"github.com/boot-pay/boot_pay/internal/yanki"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Components are the long-running pieces main starts alongside the HTTP
// server: the inbound event consumer and the settlement sweeper.
type Components struct {
	Consumer *bus.Consumer
	Sweeper  *exchange.Sweeper
}

// Setup configures middlewares, all application routes, and the background
// components sharing the same service graph.
func Setup(app *fiber.App, d Deps) (*Components, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${locals:request_id} ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		walletRepo   wallet.Repository
		yankiRepo    yanki.Repository
		rateRepo     rate.Repository
		petitionRepo exchange.Repository
		auditRepo    transaction.Repository
		bankLedger   fiatledger.Ledger
		yankiLedger  fiatledger.Ledger
	)
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		yankiRepo = yanki.NewPostgresRepository(d.DB)
		rateRepo = rate.NewPostgresRepository(d.DB)
		petitionRepo = exchange.NewPostgresRepository(d.DB)
		auditRepo = transaction.NewPostgresRepository(d.DB)
		bankLedger = fiatledger.NewPostgresLedger(d.DB, "bank")
		yankiLedger = fiatledger.NewPostgresLedger(d.DB, "yanki")
	} else {
		walletRepo = wallet.NewMemoryRepository()
		yankiRepo = yanki.NewMemoryRepository()
		rateRepo = rate.NewMemoryRepository()
		petitionRepo = exchange.NewMemoryRepository()
		auditRepo = transaction.NewMemoryRepository()
		bankLedger = fiatledger.NewInMemory()
		yankiLedger = fiatledger.NewInMemory()
	}

	// Remote fiat rails take precedence over local ledger tables.
	if d.Cfg.BankLedgerURL != "" {
		bankLedger = fiatledger.NewHTTPLedger(d.Cfg.BankLedgerURL)
	}
	if d.Cfg.YankiLedgerURL != "" {
		yankiLedger = fiatledger.NewHTTPLedger(d.Cfg.YankiLedgerURL)
	}

	ensureCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, led := range []fiatledger.Ledger{bankLedger, yankiLedger} {
		for _, code := range []string{fiatledger.TreasuryAccountCode, fiatledger.InterchangeAccountCode} {
			if err := led.EnsureAccount(ensureCtx, code); err != nil {
				return nil, fmt.Errorf("ensure ledger account %s: %w", code, err)
			}
		}
	}

	// Services
	walletSvc := wallet.NewService(walletRepo)
	yankiSvc := yanki.NewService(yankiRepo)
	rateSvc := rate.NewService(rateRepo)
	dispatcher := payment.NewDispatcher(bankLedger, yankiLedger, d.Cfg.PaymentRetries, d.Logger)

	var publisher events.Publisher
	if d.Cache != nil {
		publisher = events.NewRedisPublisher(d.Cache)
	} else {
		publisher = events.NewLoggerPublisher(d.Logger)
	}

	purchaseSvc := purchase.NewService(walletSvc, rateSvc, dispatcher, auditRepo, publisher, d.Logger)
	exchangeSvc := exchange.NewService(petitionRepo, walletSvc, rateSvc, dispatcher, auditRepo, publisher, d.Cfg.RateLockPolicy, d.Logger)

	// Inbound event consumer
	var source bus.Source
	if d.Cache != nil {
		source = bus.NewRedisSource(d.Cache)
	} else {
		source = bus.NewMemorySource()
	}
	consumer := bus.NewConsumer(source, d.Logger)
	association.NewHandlers(walletSvc, yankiSvc, d.Logger).Register(consumer)
	consumer.Handle(purchase.EventType, purchaseSvc.EventHandler())
	consumer.Handle(exchange.EventType, exchangeSvc.EventHandler())

	sweeper := exchange.NewSweeper(exchangeSvc, d.Cfg.SettleTimeout, d.Cfg.SweepInterval, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterYankiRoutes(api, yanki.NewHandler(yankiSvc))
	RegisterRateRoutes(api, rate.NewHandler(rateSvc))
	RegisterPurchaseRoutes(api, purchase.NewHandler(purchaseSvc))
	RegisterExchangeRoutes(api, exchange.NewHandler(exchangeSvc))

	return &Components{Consumer: consumer, Sweeper: sweeper}, nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
