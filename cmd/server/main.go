package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-registry/internal/config"
	"github.com/iliyamo/event-ticket-registry/internal/database"
	"github.com/iliyamo/event-ticket-registry/internal/graphql"
	"github.com/iliyamo/event-ticket-registry/internal/handler"
	"github.com/iliyamo/event-ticket-registry/internal/middleware"
	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/queue"
	"github.com/iliyamo/event-ticket-registry/internal/registry"
	"github.com/iliyamo/event-ticket-registry/internal/repository"
	"github.com/iliyamo/event-ticket-registry/internal/router"
	"github.com/iliyamo/event-ticket-registry/internal/ticket"
	"github.com/iliyamo/event-ticket-registry/internal/wallet"
)

// backend is the set of stores selected by STORE_DRIVER.
type backend struct {
	registry    registry.Registry
	holdings    registry.Lister
	store       ticket.Store
	payout      ticket.Payout
	accounts    handler.Accounts
	tokens      handler.RefreshTokens
	withdrawals handler.WithdrawalLister
	db          handler.Pinger
	close       func()
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	if cfg.StoreDriver == config.DriverMemory {
		reg := registry.NewMemory()
		store := ticket.NewMemoryStore()
		accounts := repository.NewMemoryAccounts(wallet.NewMemory())
		log.Warn("memory store driver: all state is lost on restart")
		return backend{
			registry: reg, holdings: reg,
			store: store, withdrawals: store,
			payout: accounts, accounts: accounts, tokens: accounts,
			close: func() {},
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return backend{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return backend{}, err
	}
	reg := repository.NewRegistryRepo(db)
	ledger := repository.NewLedgerRepo(db)
	accounts := repository.NewAccountRepo(db)
	return backend{
		registry: reg, holdings: reg,
		store: ledger, withdrawals: ledger,
		payout: accounts, accounts: accounts,
		tokens: repository.NewTokenRepo(db),
		db:     db,
		close:  func() { _ = db.Close() },
	}, nil
}

func main() {
	cfg := config.Load() // Load environment config
	if cfg.Env == "prod" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer be.close()

	var publisher ticket.Publisher = ticket.NopPublisher{}
	if cfg.RabbitURL != "" {
		p := queue.NewPublisher(cfg.RabbitURL)
		defer p.Close()
		publisher = p
		if cfg.AuditLogDir != "" {
			go func() {
				if err := queue.NewConsumer(cfg.RabbitURL, cfg.AuditLogDir).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("audit consumer stopped")
				}
			}()
		}
	}

	engine, err := ticket.New(ctx, ticket.Options{
		Name:       cfg.Ticket.Name,
		Symbol:     cfg.Ticket.Symbol,
		Price:      cfg.Ticket.Price,
		MaxTickets: cfg.Ticket.MaxTickets,
		// the first administrator must be a registered account
		ResolveAdmin: func(ctx context.Context) (model.AccountID, error) {
			return repository.EnsureAdmin(ctx, be.accounts, repository.AdminSeed{
				Account:    cfg.Ticket.Admin,
				Email:      cfg.Ticket.AdminEmail,
				Password:   cfg.Ticket.AdminPassword,
				BcryptCost: cfg.BcryptCost,
			})
		},
		Registry:   be.registry,
		Payout:     be.payout,
		Store:      be.store,
		Publisher:  publisher,
	})
	if err != nil {
		log.WithError(err).Fatal("start ticket engine")
	}

	// Redis is optional: without it the cache and limiter pass requests through.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	schema, err := graphql.NewSchema(engine, be.holdings)
	if err != nil {
		log.WithError(err).Fatal("build graphql schema")
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	}))

	router.RegisterRoutes(e, be.db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, be.accounts, be.tokens, engine), cfg.JWTSecret)
	router.RegisterTickets(e, handler.NewTicketHandler(engine, be.holdings), cfg.JWTSecret, cache, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(engine, be.withdrawals), cfg.JWTSecret, limiter)
	router.RegisterGraphQL(e, graphql.NewHandler(schema))

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(log.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
