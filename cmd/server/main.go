package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/learnpath/guard"
	"github.com/jrsteele09/learnpath/identity/authflow"
	"github.com/jrsteele09/learnpath/identity/oidcclient"
	"github.com/jrsteele09/learnpath/identity/tokenstore"
	"github.com/jrsteele09/learnpath/internal/config"
	"github.com/jrsteele09/learnpath/internal/metrics"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/jrsteele09/learnpath/profiles/postgres"
	"github.com/jrsteele09/learnpath/profiles/rest"
	"github.com/jrsteele09/learnpath/server"
	"github.com/jrsteele09/learnpath/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	redisPrefix     = "learnpath"
	providerTimeout = 15 * time.Second
	startupTimeout  = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	if err := config.Validate(c); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, flows, closeRedis, err := openSessionStorage(c)
	if err != nil {
		return err
	}
	defer closeRedis()

	client, err := oidcclient.New(ctx, oidcclient.Config{
		IssuerURL:       c.GetIssuerURL(),
		APIKey:          c.GetBackendKey(),
		RedirectURL:     c.GetBaseURL() + c.GetCallbackPath(),
		Scopes:          c.GetScopes(),
		RefreshMargin:   c.GetRefreshMargin(),
		RefreshInterval: c.GetRefreshInterval(),
		FlowStates:      flows,
		HTTPClient:      &http.Client{Timeout: providerTimeout},
	}, tokens)
	if err != nil {
		return fmt.Errorf("oidcclient.New: %w", err)
	}
	client.Start(ctx)

	repo, closeDB, err := openProfiles(c, func(ctx context.Context) (string, error) {
		s, err := client.GetSession(ctx)
		if err != nil || s == nil {
			return "", err
		}
		return s.AccessToken, nil
	})
	if err != nil {
		return err
	}
	defer closeDB()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	store := session.New(client, repo, session.WithRecorder(collector))
	defer store.Dispose()
	store.Initialize()

	g := guard.New(store, server.GuardRoutes(), guard.WithTimeout(c.GetAuthTimeout()), guard.WithRecorder(collector))
	defer g.Dispose()

	handler, err := server.New(c, server.Deps{Store: store, Guard: g, Metrics: collector, Gatherer: registry})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetListenAddr(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openSessionStorage shares sessions and OAuth state through Redis when
// REDIS_URL is set, and keeps them in process otherwise.
func openSessionStorage(c config.Config) (tokenstore.Store, authflow.Repo, func(), error) {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		log.Info().Msg("REDIS_URL not set, keeping sessions in memory")
		return tokenstore.NewMemory(), authflow.NewInMemoryRepo(authflow.DefaultTTL), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Sessions stored in Redis")
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			log.Err(err).Msg("failed to close redis client")
		}
	}
	return tokenstore.NewRedis(rdb, redisPrefix, 0), authflow.NewRedisRepo(rdb, redisPrefix, authflow.DefaultTTL), closeFn, nil
}

// openProfiles reads profiles straight from Postgres when DATABASE_URL is
// set, and through the backend's data API otherwise.
func openProfiles(c config.Config, token rest.TokenFunc) (profiles.Repo, func(), error) {
	databaseURL := c.GetDatabaseURL()
	if databaseURL == "" {
		return rest.New(c.GetBackendURL(), c.GetBackendKey(), token, nil), func() {}, nil
	}

	if err := postgres.Migrate(databaseURL); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Profiles stored in Postgres")
	return postgres.New(db), closeDB(db), nil
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Err(err).Msg("failed to close database")
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
