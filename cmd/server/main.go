package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/config"
	"github.com/frodan/league-exchange/internal/db"
	"github.com/frodan/league-exchange/internal/directory"
	"github.com/frodan/league-exchange/internal/events"
	"github.com/frodan/league-exchange/internal/identity"
	"github.com/frodan/league-exchange/internal/logger"
	"github.com/frodan/league-exchange/internal/metrics"
	"github.com/frodan/league-exchange/internal/pricing"
	"github.com/frodan/league-exchange/internal/store"
	"github.com/frodan/league-exchange/internal/trade"
)

func main() {
	cfgPath := os.Getenv("LX_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LX_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store and directories ---
	var (
		st      store.Store
		players directory.Players
		leagues directory.Leagues
		cleanup []func()
		deps    []dependency
	)

	if cfg.DB.DSN != "" {
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			log.Fatal("db open failed", zap.Error(err))
		}
		cleanup = append(cleanup, func() { dbConn.Close() })
		deps = append(deps, dependency{"postgres", dbConn.Ping})
		if cfg.DB.AutoMigrate {
			if err := db.AutoMigrate(dbConn); err != nil {
				log.Fatal("auto-migrate failed", zap.Error(err))
			}
		}
		dir := directory.NewGormDirectory(dbConn.Gorm)
		players, leagues = dir, dir

		pool, err := pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		log.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			opt, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				log.Fatal("invalid redis url", zap.Error(err))
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			deps = append(deps, dependency{"redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
			st = store.NewCachedStore(st, rdb, cfg.Redis.TTL, log)
			log.Info("Redis cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
		}
	} else {
		log.Warn("db.dsn not set, using in-memory store with demo data (data will not persist)")
		ms := store.NewMemoryStore()
		dir := directory.NewMemory()
		if err := seedDemo(ctx, ms, dir, time.Now().UTC()); err != nil {
			log.Fatal("seed demo data failed", zap.Error(err))
		}
		st, players, leagues = ms, dir, dir
	}

	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Pricing ---
	base, err := decimal.NewFromString(cfg.Trading.PriceBase)
	if err != nil {
		log.Fatal("invalid trading.price_base", zap.Error(err))
	}
	ppu, err := decimal.NewFromString(cfg.Trading.PricePointsPerUnit)
	if err != nil {
		log.Fatal("invalid trading.price_points_per_unit", zap.Error(err))
	}
	oracle, err := pricing.NewLeaguePointsOracle(base, ppu)
	if err != nil {
		log.Fatal("invalid pricing configuration", zap.Error(err))
	}

	// --- Events ---
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatal("amqp connection failed", zap.Error(err))
		}
		publisher = p
		log.Info("publishing transactions", zap.String("exchange", cfg.AMQP.Exchange))
	}
	defer publisher.Close()

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub(log, cfg.Server.CORSOrigins)
	go wsHub.Run(ctx)

	// --- Trade service ---
	engine := trade.NewEngine(st, players, leagues, oracle, log)
	tradeSvc := trade.NewService(engine, leagues, publisher, wsHub, log)

	auth := identity.DevMiddleware()
	if cfg.Auth.JWTSecret != "" {
		auth = identity.Middleware(identity.JWT{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.Issuer})
	} else {
		log.Warn("auth.jwt_secret not set, trusting " + identity.DevUserHeader + " header")
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identity.DevUserHeader},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", healthHandler(deps))

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time transaction updates.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(auth)
			tradeSvc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("league-exchange listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("shutting down league-exchange...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("league-exchange stopped")
}
