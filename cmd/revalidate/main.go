package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/always-cache/revalidate"
	"github.com/always-cache/revalidate/cache"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	providerFlag       string
	dbFilenameFlag     string
	redisURLFlag       string
	geoHeaderFlag      string
	secretFlag         string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on (overrides config)")
	flag.StringVar(&providerFlag, "provider", providerMemory, "Cache provider: memory, sqlite or redis (overrides config)")
	flag.StringVar(&dbFilenameFlag, "db", "cache.db", "Cache DB file name for the sqlite provider (use 'memory' for in-memory db)")
	flag.StringVar(&redisURLFlag, "redis", "redis://localhost:6379/0", "Redis URL for the redis provider")
	flag.StringVar(&geoHeaderFlag, "geo-header", "", "Request header with the visitor country code (default X-Country)")
	flag.StringVar(&secretFlag, "secret", "", "Shared secret required by the revalidate webhook")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config, err := getConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read config")
	}
	if err := config.applyFlags(flag.CommandLine); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tagCache, closeCache, err := newCache(ctx, config.Cache)
	if err != nil {
		log.Fatal().Err(err).Str("provider", config.Cache.Provider).Msg("Could not set up cache")
	}
	defer closeCache()

	site := revalidate.New(revalidate.Config{
		Cache:            tagCache,
		Logger:           &log.Logger,
		WikiURL:          config.Wiki.URL,
		CountryHeader:    config.Edge.GeoHeader,
		RevalidateSecret: config.Revalidate.Secret,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           site,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Could not shut down cleanly")
		}
	}()

	log.Info().Msgf("Serving on port %d with %s cache", config.Port, config.Cache.Provider)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	// let background refreshes finish before the cache is closed
	site.Close()
}

// newCache creates the configured cache provider and a function closing it.
func newCache(ctx context.Context, config CacheConfig) (cache.TagCache, func(), error) {
	noop := func() {}
	switch config.Provider {
	case providerSQLite:
		dbFilename := config.SQLite
		if dbFilename == "memory" {
			dbFilename = ""
		}
		c, err := cache.NewSQLiteCache(dbFilename)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { c.Close() }, nil
	case providerRedis:
		c, err := cache.NewRedisCacheFromURL(ctx, config.Redis)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { c.Close() }, nil
	default:
		c, err := cache.NewMemCache(config.Size)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	}
}
