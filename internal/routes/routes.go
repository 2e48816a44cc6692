package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/ads"
	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/identity"
	"github.com/flexyearn/flexyearn/internal/ledger"
	"github.com/flexyearn/flexyearn/internal/middleware"
	"github.com/flexyearn/flexyearn/internal/notification"
	"github.com/flexyearn/flexyearn/internal/payout"
	"github.com/flexyearn/flexyearn/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Notifier and
// Events are optional; they default to the logger notifier and a no-op
// publisher.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
	Events   events.Publisher
}

// Setup configures middlewares and all application routes. The returned
// manager owns the live sessions and must be closed on shutdown.
func Setup(app *fiber.App, d Deps) (*session.Manager, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Cfg.Ads.Mode == config.AdModePostback && d.Cache == nil {
		return nil, fmt.Errorf("redis is required when AD_MODE=%s", config.AdModePostback)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, " + middleware.InitDataHeader,
	}))
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Services and handlers
	var accountRepo account.Repository
	var journal ledger.Journal
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		journal = ledger.NewPostgresJournal(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		journal = ledger.NewInMemory()
	}

	rules := d.Cfg.Rules
	rate, err := payout.NewRate(d.Cfg.Payout.PointsPerUnit, d.Cfg.Payout.UnitAmount, d.Cfg.Payout.Currency)
	if err != nil {
		return nil, err
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	publisher := d.Events
	if publisher == nil {
		publisher = events.Nop{}
	}

	manager := session.NewManager(session.Deps{
		Accounts: account.NewService(accountRepo, session.PolicyFromRules(rules)),
		Journal:  journal,
		Notifier: notifier,
		Events:   publisher,
		Rate:     rate,
		Logger:   d.Logger,
		Settings: session.SettingsFromRules(rules, d.Cfg.SessionIdleTTL),
	})

	players := session.PlayerSource(session.ClientReported)
	if d.Cfg.Ads.Mode == config.AdModePostback {
		store := ads.NewPostbackStore(d.Cache, d.Cfg.Ads.PostbackTTL)
		players = func(string) ads.Player { return store }
		RegisterAdRoutes(app, ads.NewHandler(store, d.Cfg.Ads.PostbackSecret, d.Logger))
	}

	resolver := identity.NewResolver(identity.ResolverConfig{
		BotToken:    d.Cfg.Telegram.BotToken,
		Verify:      d.Cfg.Telegram.VerifyInitData,
		MaxAge:      d.Cfg.Telegram.InitDataMaxAge,
		DevFallback: d.Cfg.Telegram.DevFallback,
	})
	sessionHandler := session.NewHandler(manager, journal, players, middleware.UserFrom, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Identity-bound routes
	protected := api.Group("",
		middleware.Identity(resolver, d.Logger),
		middleware.ActionRateLimit(d.Cache, d.Cfg.RateLimit, d.Logger),
	)
	RegisterSessionRoutes(protected, sessionHandler, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	return manager, nil
}
