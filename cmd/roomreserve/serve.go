package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"roomreserve/internal/config"
	"roomreserve/internal/database"
	"roomreserve/internal/handler"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
)

// dbFlags are shared by serve and seed.
func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db-host", Value: "localhost", EnvVars: []string{"DB_HOST"}},
		&cli.StringFlag{Name: "db-port", Value: "5432", EnvVars: []string{"DB_PORT"}},
		&cli.StringFlag{Name: "db-user", Value: "postgres", EnvVars: []string{"DB_USER"}},
		&cli.StringFlag{Name: "db-password", Value: "postgres", EnvVars: []string{"DB_PASSWORD"}},
		&cli.StringFlag{Name: "db-name", Value: "roomreserve", EnvVars: []string{"DB_NAME"}},
		&cli.StringFlag{Name: "db-sslmode", Value: "disable", EnvVars: []string{"DB_SSLMODE"}},
	}
}

func serveCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"ADDR"}, Usage: "listen address"},
		&cli.BoolFlag{Name: "dev", EnvVars: []string{"DEV"}, Usage: "run on the in-memory store with seeded demo rooms"},
		&cli.StringFlag{Name: "auth-secret", Value: "dev-secret", EnvVars: []string{"AUTH_SECRET"}, Usage: "HS256 secret for caller tokens"},
		&cli.DurationFlag{Name: "lock-wait", Value: repository.DefaultLockWait, EnvVars: []string{"LOCK_WAIT"}, Usage: "bounded wait for the per-slot admission lock"},
		&cli.Float64Flag{Name: "rate-rps", Value: 20, EnvVars: []string{"RATE_RPS"}, Usage: "per-client requests per second, 0 disables"},
		&cli.IntFlag{Name: "rate-burst", Value: 40, EnvVars: []string{"RATE_BURST"}},
		&cli.BoolFlag{
			Name: "allow-multiple-per-requester", Value: true, EnvVars: []string{"ALLOW_MULTIPLE_PER_REQUESTER"},
			Usage: "let one requester hold several reservations for the same slot; most deployments should turn this off",
		},
		&cli.BoolFlag{Name: "enforce-cancel-cutoff", Value: true, EnvVars: []string{"ENFORCE_CANCEL_CUTOFF"}, Usage: "reject non-admin cancellations after the slot has started"},
		&cli.BoolFlag{Name: "log-json", EnvVars: []string{"LOG_JSON"}},
	}
	flags = append(flags, dbFlags()...)

	return &cli.Command{
		Name:   "serve",
		Usage:  "run the reservation API server",
		Flags:  flags,
		Action: runServe,
	}
}

func configFromCLI(c *cli.Context) config.Config {
	return config.Config{
		Addr:                      c.String("addr"),
		Dev:                       c.Bool("dev"),
		DBHost:                    c.String("db-host"),
		DBPort:                    c.String("db-port"),
		DBUser:                    c.String("db-user"),
		DBPassword:                c.String("db-password"),
		DBName:                    c.String("db-name"),
		DBSSLMode:                 c.String("db-sslmode"),
		AuthSecret:                c.String("auth-secret"),
		LockWait:                  c.Duration("lock-wait"),
		RateLimitRPS:              c.Float64("rate-rps"),
		RateLimitBurst:            c.Int("rate-burst"),
		AllowMultiplePerRequester: c.Bool("allow-multiple-per-requester"),
		EnforceCancelCutoff:       c.Bool("enforce-cancel-cutoff"),
		LogJSON:                   c.Bool("log-json"),
	}
}

func runServe(c *cli.Context) error {
	cfg := configFromCLI(c)
	logger := newLogger(cfg.LogJSON)
	ctx := c.Context

	// ── 1. Stores: Postgres, or in-memory for --dev ───────────────────────
	var (
		rooms  service.RoomStore
		ledger service.ReservationStore
	)
	if cfg.Dev {
		mem := repository.NewMemoryStore(cfg.LockWait)
		for _, req := range demoRooms() {
			if _, err := mem.Create(ctx, req); err != nil {
				return err
			}
		}
		rooms, ledger = mem, mem
		logger.Info("running on in-memory store with demo rooms", "rooms", len(demoRooms()))
	} else {
		pool, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		rooms = repository.NewRoomRepository(pool)
		ledger = repository.NewReservationRepository(pool, cfg.LockWait)
		logger.Info("connected to postgres", "host", cfg.DBHost, "db", cfg.DBName)
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	policy := service.Policy{
		AllowMultiplePerRequester: cfg.AllowMultiplePerRequester,
		EnforceCancelCutoff:       cfg.EnforceCancelCutoff,
	}
	roomSvc := service.NewRoomService(rooms)
	resvSvc := service.NewReservationService(rooms, ledger, policy)
	router := handler.NewRouter(
		handler.NewRoomHandler(roomSvc),
		handler.NewReservationHandler(resvSvc),
		handler.RouterOptions{
			Logger:         logger,
			AuthSecret:     []byte(cfg.AuthSecret),
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		},
	)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
