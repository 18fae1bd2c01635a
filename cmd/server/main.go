package main // Entry point package

import (
	"context"   // shutdown deadline
	"errors"    // server closed detection
	"fmt"       // startup failure output
	"net/http"  // http.ErrServerClosed
	"os"        // exit codes
	"os/signal" // SIGINT/SIGTERM handling
	"syscall"   // SIGTERM
	"time"      // shutdown timeout

	"github.com/labstack/echo/v4"                    // Echo web framework
	"github.com/prometheus/client_golang/prometheus" // metrics registry
	"go.uber.org/zap"                                // structured logging

	"github.com/iliyamo/cinema-ticketing/internal/config"     // Internal config loader
	"github.com/iliyamo/cinema-ticketing/internal/database"   // store connection and migrations
	"github.com/iliyamo/cinema-ticketing/internal/handler"    // HTTP handlers
	"github.com/iliyamo/cinema-ticketing/internal/logger"     // zap construction
	"github.com/iliyamo/cinema-ticketing/internal/metrics"    // Prometheus collectors
	"github.com/iliyamo/cinema-ticketing/internal/middleware" // session auth and request logging
	"github.com/iliyamo/cinema-ticketing/internal/queue"      // sale events
	"github.com/iliyamo/cinema-ticketing/internal/router"     // Internal router setup
	"github.com/iliyamo/cinema-ticketing/internal/service"    // booking core
	"github.com/iliyamo/cinema-ticketing/internal/session"    // session stores
	"github.com/iliyamo/cinema-ticketing/internal/wire"       // TCP protocol server
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cinema-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database ready", zap.String("driver", cfg.DB.Driver))

	// Redis is optional; without it sessions and login attempts stay in
	// process memory.
	rdb := config.NewRedisClient(cfg.Redis)
	var store session.Store
	if rdb != nil {
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.SessionIdleTimeout)
		log.Info("sessions backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		store = session.NewMemoryStore(cfg.SessionIdleTimeout)
		if cfg.Redis.Enabled {
			log.Warn("redis unreachable, using in-memory sessions", zap.String("addr", cfg.Redis.Addr))
		}
	}
	guard := session.NewLoginGuard(rdb, cfg.Admin.MaxLoginAttempts, cfg.Admin.LoginLockout)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	repos := service.NewRepos(db)
	seats := service.NewSeatRegistry(repos, log)
	accounts := service.NewAccounts(repos, guard, cfg.BcryptCost, log)
	catalog := service.NewCatalog(repos, log)
	scheduler := service.NewScheduler(repos, cfg.CleanupMinutes, m, log)
	sales := service.NewSales(repos, seats, log).
		WithPricing(service.FlatPrice(cfg.TicketBasePriceCents)).
		WithMetrics(m)
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		go pub.Run(ctx)
		sales.WithEvents(pub)
	}

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return err
		}
	} else {
		log.Warn("ADMIN_EMAIL/ADMIN_PASSWORD not set, no administrator bootstrapped")
	}

	if cfg.SalesConsumerEnabled {
		c := queue.NewConsumer(cfg.RabbitURL, cfg.SalesLogPath, log)
		go func() {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("sales consumer stopped", zap.Error(err))
			}
		}()
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log, m))
	auth := middleware.SessionAuth(cfg.JWTSecret, store)
	movies := handler.NewMovieHandler(catalog)
	rooms := handler.NewRoomHandler(catalog, seats)
	shows := handler.NewShowtimeHandler(scheduler, sales)
	router.RegisterRoutes(e, db, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(accounts, store, cfg.JWTSecret, cfg.AccessTTL), auth)
	router.RegisterPublic(e, movies, rooms, shows)
	router.RegisterAdmin(e, movies, rooms, shows, auth)
	router.RegisterSales(e, handler.NewSaleHandler(sales), auth)

	// ---- wire protocol ----
	ws := wire.New(wire.Services{
		Accounts:  accounts,
		Catalog:   catalog,
		Scheduler: scheduler,
		Sales:     sales,
		Seats:     seats,
	}, store, m, log)
	ws.IdleTimeout = cfg.SessionIdleTimeout

	errc := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		if err := ws.ListenAndServe(cfg.WireAddr); err != nil {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errc:
		log.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	if serr := ws.Shutdown(shutdownCtx); serr != nil {
		log.Warn("wire shutdown", zap.Error(serr))
	}
	return err
}
