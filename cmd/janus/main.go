package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/sync/errgroup"

	"github.com/agoradao/janus/adapters/events"
	"github.com/agoradao/janus/adapters/store"
	"github.com/agoradao/janus/adapters/tokenizer"
	"github.com/agoradao/janus/config"
	"github.com/agoradao/janus/internal/eth"
	"github.com/agoradao/janus/internal/logging"
	"github.com/agoradao/janus/ports"
	"github.com/agoradao/janus/service"
	transport "github.com/agoradao/janus/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger := logging.New("janus", cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		nonces   ports.NonceStore
		sessions ports.SessionStore
		health   ports.Pinger
		eventPub ports.EventPublisher
	)

	switch cfg.Store {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parsing redis url")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("url", cfg.RedisURL).Msg("redis unreachable")
		}
		rs := store.NewRedisStore(redisClient, cfg.NonceTTL, cfg.SessionTTL)
		nonces, sessions, health = rs, rs, rs

		// Lifecycle events ride the same redis as a stream; other backends
		// run without a broker.
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("creating event publisher")
		}
		defer publisher.Close()
		eventPub = events.NewWatermillPublisher(publisher)

	case config.StoreSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("opening sqlite database")
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		defer db.Close()
		bs, err := store.NewBunStore(ctx, db, cfg.NonceTTL, cfg.SessionTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("initializing sqlite store")
		}
		nonces, sessions, health = bs, bs, bs

	case config.StoreMemory:
		ms := store.NewMemoryStore(cfg.NonceTTL, cfg.SessionTTL)
		nonces, sessions, health = ms, ms, ms
	}

	tok := tokenizer.NewJWTTokenizer(cfg.Secret, cfg.PreviousSecret, cfg.TokenTTL)

	authService := service.NewAuthService(service.Config{
		Domain:    cfg.Domain,
		URI:       cfg.URI,
		Statement: cfg.Statement,
		ChainIDs:  cfg.ChainIDs,
		Resources: cfg.Resources,
	}, nonces, sessions, tok, eth.PersonalSignVerifier{}, eventPub, logger)

	gin.SetMode(gin.ReleaseMode)
	router := transport.SetupRouter(authService, health, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("store", cfg.Store).
			Str("domain", cfg.Domain).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
