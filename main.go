package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"join-board/api"
	"join-board/config"
	"join-board/domain"
	"join-board/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var rc *redis.Client
	if cfg.RedisConnection != "" {
		rc = redis.NewClient(redisOptions(cfg.RedisConnection))
		defer rc.Close()
	}

	gw, err := newGateway(cfg, rc)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	feed, err := newFeed(cfg, rc)
	if err != nil {
		log.Fatalf("change feed: %v", err)
	}

	var deduper api.Deduper
	if rc != nil {
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL, cfg.RedisNamespace)
	}
	auth := api.NewAuth(cfg.SessionSecret, cfg.SessionTTL)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(middleware.Decompress())
	e.Use(echoprometheus.NewMiddleware("join_board"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.StandardLogger()
	srv := api.Register(e, api.Options{
		Gateway:            gw,
		Auth:               auth,
		Tokens:             auth,
		Deduper:            deduper,
		Feed:               feed,
		Logger:             logger,
		SaveBuffer:         cfg.SaveBuffer,
		SaveTimeout:        cfg.SaveTimeout,
		SaveHandoffTimeout: cfg.SaveHandoffTimeout,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	log.Infof("join board listening on :%s, storage: %s, feed: %s", cfg.Port, cfg.Provider, cfg.ChangeFeed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	srv.Close()
	log.Info("pending saves flushed")
}

// redisOptions accepts a redis:// URL or an Azure style
// "host:port,password=...,ssl=true" connection string.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func newGateway(cfg config.Config, rc *redis.Client) (domain.Gateway, error) {
	var gw domain.Gateway
	switch cfg.Provider {
	case config.ProviderFirebase:
		fb, err := storage.NewFirebase(cfg.FirebaseURL, cfg.FirebaseTimeout)
		if err != nil {
			return nil, err
		}
		gw = fb
	case config.ProviderRedis:
		return storage.NewKV(rc, cfg.RedisNamespace), nil
	case config.ProviderTable:
		tbl, err := storage.NewTable(cfg.StorageConnection, cfg.TasksTable, cfg.ContactsTable, cfg.Partition)
		if err != nil {
			return nil, err
		}
		gw = tbl
	default:
		return nil, errors.New("unsupported storage provider " + cfg.Provider)
	}
	if rc != nil && cfg.CacheTTL > 0 {
		log.Infof("caching %s loads in redis for %v", cfg.Provider, cfg.CacheTTL)
		gw = storage.NewCache(gw, rc, cfg.CacheTTL, cfg.RedisNamespace)
	}
	return gw, nil
}

func newFeed(cfg config.Config, rc *redis.Client) (api.Feed, error) {
	switch cfg.ChangeFeed {
	case config.FeedRedis:
		return storage.NewRedisFeed(rc, cfg.ChangeChannel), nil
	case config.FeedQueue:
		return storage.NewQueueFeed(cfg.StorageConnection, cfg.ChangeQueue)
	default:
		return nil, nil
	}
}
