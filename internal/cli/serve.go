package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arideno/quiz-time/internal/app"
	"github.com/Arideno/quiz-time/internal/config"
	"github.com/Arideno/quiz-time/internal/infra/memory"
	pgstore "github.com/Arideno/quiz-time/internal/infra/postgres"
	redisstore "github.com/Arideno/quiz-time/internal/infra/redis"
	"github.com/Arideno/quiz-time/internal/logger"
	transport "github.com/Arideno/quiz-time/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz contract server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger.Level)
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store app.Store
		payer app.Payer
	)
	switch cfg.Storage.Backend {
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
		// payouts still settle against redis balances when available
		if cfg.Redis.Addr != "" {
			payer = redisstore.NewTreasury(newRedisClient(cfg))
		} else {
			payer = memory.NewTreasury()
		}
	case "redis":
		client := newRedisClient(cfg)
		store = redisstore.NewStore(client)
		payer = redisstore.NewTreasury(client)
	default:
		store = memory.NewStore()
		payer = memory.NewTreasury()
	}

	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	reader := memory.NewQuizCache(app.NewStoreReader(store), cacheTTL)
	service := app.NewService(cfg.Owner.AccountID, store, payer, reader)

	handler := transport.NewHandler(service, log)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz contract service",
			zap.String("port", finalPort),
			zap.String("backend", cfg.Storage.Backend),
			zap.String("owner", cfg.Owner.AccountID))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRedisClient(cfg config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
