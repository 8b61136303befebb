package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/favmaps/places/internal/pkg/application"
	"github.com/favmaps/places/internal/pkg/application/events"
	"github.com/favmaps/places/internal/pkg/application/places"
	"github.com/favmaps/places/internal/pkg/application/querycache"
	"github.com/favmaps/places/internal/pkg/application/selection"
	"github.com/favmaps/places/internal/pkg/application/webevents"
	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/internal/pkg/infrastructure/router"
	"github.com/favmaps/places/internal/pkg/infrastructure/storage"
	"github.com/favmaps/places/internal/pkg/infrastructure/tracing"
	"github.com/favmaps/places/internal/pkg/presentation/api"
	"github.com/favmaps/places/pkg/client"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const serviceName string = "places-gateway"

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		logFormat:     "json",

		backendURL:     "http://localhost:3001/",
		redisURL:       "",
		allowedOrigins: "",

		dbHost:     "",
		dbUser:     "",
		dbPassword: "",
		dbPort:     "5432",
		dbName:     "favmaps",
		dbSSLMode:  "disable",

		configurationFile: "/opt/favmaps/config/config.yaml",
	}
}

func main() {
	ctx, flags := parseExternalConfig(context.Background(), defaultFlags())

	serviceVersion := version()
	ctx, logger := logging.NewLogger(ctx, serviceName, serviceVersion, flags[logFormat])
	logger.Info().Msg("starting up ...")

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion)
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	cfg, err := loadConfiguration(flags[configurationFile])
	exitIf(err, logger, "could not load configuration")

	gw, err := initialize(ctx, flags, cfg)
	exitIf(err, logger, "failed to initialize gateway")
	defer gw.shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              net.JoinHostPort(flags[listenAddress], flags[servicePort]),
		Handler:           gw.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", server.Addr).Msg("listening")

	err = server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		exitIf(err, logger, "failed to start request router")
	}
}

type gateway struct {
	router    *chi.Mux
	janitor   querycache.Janitor
	webEvents webevents.WebEvents
	snapshots querycache.Snapshotter
	closers   []func()
}

func (g *gateway) shutdown() {
	g.janitor.Stop()
	g.webEvents.Shutdown()
	for _, c := range g.closers {
		c()
	}
}

func initialize(ctx context.Context, flags flagMap, cfg *application.Config) (*gateway, error) {
	log := logging.GetFromContext(ctx)

	gw := &gateway{}

	err := newSnapshotter(ctx, flags, cfg, gw)
	if err != nil {
		return nil, err
	}

	var opts []querycache.Option
	if gw.snapshots != nil {
		opts = append(opts, querycache.WithSnapshotter(gw.snapshots))
	}

	cache := querycache.New(opts...)

	if gw.snapshots != nil {
		n, err := cache.Restore(ctx, places.Decoders())
		if err != nil {
			log.Warn().Err(err).Msg("could not restore cache snapshots")
		} else {
			log.Info().Msgf("restored %d cache entries", n)
		}
	}

	sender, err := events.New(&cfg.Config)
	if err != nil {
		return nil, err
	}

	transport := client.New(flags[backendURL], client.WithRetry(cfg.Transport.MaxAttempts, cfg.Transport.Backoff))

	sel := selection.New()

	gw.webEvents = webevents.New()
	cache.OnChange(webevents.CacheChanged(gw.webEvents))
	sel.OnChange(webevents.SelectionChanged(gw.webEvents))

	svc := places.New(transport, cache, sel, sender)

	gw.janitor = querycache.NewJanitor(cache, cfg.Cache.Retention, cfg.Cache.SweepInterval)
	gw.janitor.Start(ctx)

	var origins []string
	if flags[allowedOrigins] != "" {
		origins = strings.Split(flags[allowedOrigins], ",")
	}

	gw.router = api.RegisterHandlers(ctx, router.New(serviceName, origins...), svc, sel, gw.webEvents)

	return gw, nil
}

// newSnapshotter picks redis when a redis url is given and postgres when a
// database host is given. Without either, cache entries are not persisted.
func newSnapshotter(ctx context.Context, flags flagMap, cfg *application.Config, gw *gateway) error {
	switch {
	case flags[redisURL] != "":
		s, err := storage.New(ctx, storage.NewConfig(flags[redisURL], storage.DefaultPrefix, cfg.Cache.SnapshotTTL))
		if err != nil {
			return err
		}
		gw.snapshots = s
		gw.closers = append(gw.closers, func() { s.Close() })
	case flags[dbHost] != "":
		s, err := storage.NewPostgres(ctx, storage.NewPostgresConfig(flags[dbHost], flags[dbUser], flags[dbPassword],
			flags[dbPort], flags[dbName], flags[dbSSLMode], cfg.Cache.SnapshotTTL))
		if err != nil {
			return err
		}
		if err := s.Initialize(ctx); err != nil {
			s.Close()
			return err
		}
		gw.snapshots = s
		gw.closers = append(gw.closers, s.Close)
	}

	return nil
}

func loadConfiguration(path string) (*application.Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return application.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return application.LoadConfiguration(f)
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	// a missing .env file is fine
	_ = godotenv.Load()

	envOrDef := func(name, def string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[logFormat] = envOrDef("LOG_FORMAT", flags[logFormat])
	flags[backendURL] = envOrDef("BACKEND_URL", flags[backendURL])
	flags[redisURL] = envOrDef("REDIS_URL", flags[redisURL])
	flags[dbHost] = envOrDef("POSTGRES_HOST", flags[dbHost])
	flags[dbPort] = envOrDef("POSTGRES_PORT", flags[dbPort])
	flags[dbName] = envOrDef("POSTGRES_DBNAME", flags[dbName])
	flags[dbUser] = envOrDef("POSTGRES_USER", flags[dbUser])
	flags[dbPassword] = envOrDef("POSTGRES_PASSWORD", flags[dbPassword])
	flags[dbSSLMode] = envOrDef("POSTGRES_SSLMODE", flags[dbSSLMode])
	flags[allowedOrigins] = envOrDef("ALLOWED_ORIGINS", flags[allowedOrigins])
	flags[configurationFile] = envOrDef("CONFIG_FILE", flags[configurationFile])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "gateway configuration file", apply(configurationFile))
	flag.Func("backend", "base url of the places backend", apply(backendURL))
	flag.Func("redis", "redis url for cache snapshots", apply(redisURL))
	flag.Parse()

	return ctx, flags
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	infoMap := map[string]string{}
	for _, s := range buildInfo.Settings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Error().Err(err).Msg(msg)
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}
