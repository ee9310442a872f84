package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/config"
	"storefront/internal/domain"
	apphttp "storefront/internal/http"
	"storefront/internal/integrations/itchapi"
	"storefront/internal/localizer"
	"storefront/internal/reactor"
	"storefront/internal/reactors"
	"storefront/internal/scheduler"
	"storefront/internal/security/secretbox"
	"storefront/internal/service/credentials"
	"storefront/internal/service/fetch"
	"storefront/internal/state"
	storepkg "storefront/internal/store"
	"storefront/internal/store/memory"
	"storefront/internal/store/postgres"
	redisstore "storefront/internal/store/redis"
	"storefront/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var box *secretbox.Box
	if cfg.SessionEncryptionKey != "" {
		box, err = secretbox.New(cfg.SessionEncryptionKey)
		if err != nil {
			log.Fatalf("session encryption: %v", err)
		}
	} else {
		log.Printf("STOREFRONT_SESSION_ENCRYPTION_KEY not set, api keys are stored unsealed")
	}

	st, closeStore := openStore(cfg, box)
	defer closeStore()

	if cfg.SessionCache == "redis" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unavailable, keeping remembered sessions in the store: %v", err)
			_ = rdb.Close()
		} else {
			st = storepkg.WithSessions(st, redisstore.NewSessionStore(rdb, cfg.RedisPrefix, box))
			defer rdb.Close()
		}
	}

	loc, err := localizer.Load(cfg.LocalesPath, cfg.Language)
	if err != nil {
		log.Fatalf("localizer: %v", err)
	}

	apiClient := itchapi.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIMaxRetries, cfg.APIRetryBase, cfg.APIRetryMax)
	resolver := credentials.NewResolver(st, st)

	watcher := reactor.NewWatcher()
	reactors.Register(watcher, reactors.Deps{
		Sessions:         st,
		Games:            st,
		Caves:            st,
		Resolver:         resolver,
		Fetcher:          fetch.NewGameFetcher(st, apiClient),
		MaxFetchAttempts: cfg.FetchMaxAttempts,
		LogActions:       cfg.LogActions,
	})

	loop := scheduler.NewLoop()
	app := state.NewStore(watcher, loop)

	runCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		_ = loop.Run(runCtx)
	}()

	if err := app.Dispatch(runCtx, domain.NewAction(domain.Boot{})); err != nil {
		log.Printf("boot: %v", err)
	}

	srv := apphttp.NewServer(cfg, app, st, resolver, apiClient, loc)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront control API listening on %s (store=%s, lang=%s)", cfg.ListenAddr, cfg.StoreMode, loc.Lang())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openStore(cfg config.Config, box *secretbox.Box) (storepkg.Store, func()) {
	switch cfg.StoreMode {
	case "postgres":
		if cfg.DatabaseURL != "" {
			pgStore, err := postgres.NewStore(cfg.DatabaseURL, box)
			if err == nil {
				return pgStore, closer(pgStore)
			}
			log.Printf("postgres store unavailable, falling back to memory store: %v", err)
		} else {
			log.Printf("STOREFRONT_DATABASE_URL not set, falling back to memory store")
		}
	case "sqlite":
		sqliteStore, err := sqlite.Open(cfg.SQLitePath, box)
		if err == nil {
			return sqliteStore, closer(sqliteStore)
		}
		log.Printf("sqlite store unavailable, falling back to memory store: %v", err)
	}
	return memory.NewStore(), func() {}
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}
