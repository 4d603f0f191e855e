package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/adapter/filesystem"
	"github.com/vertextoedge/fetchkit/internal/adapter/sqlite"
	"github.com/vertextoedge/fetchkit/internal/adapter/transport"
	"github.com/vertextoedge/fetchkit/internal/config"
	"github.com/vertextoedge/fetchkit/internal/domain/event"
	"github.com/vertextoedge/fetchkit/internal/logger"
	"github.com/vertextoedge/fetchkit/internal/service/downloader"
	"github.com/vertextoedge/fetchkit/internal/service/maintenance"
)

const version = "0.1.0"

const usage = `usage: fetchkit [-config file] [-v] <command> [arguments]

commands:
  get [-base url] <path>                 send a GET request and print the body
  download <url> <dest> [<url> <dest>]   download resources, Ctrl-C stops them
  history [-n count] [-url url]          show finished transfers
  version                                print the version
`

// app holds the wired components shared by the commands
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	fs        *filesystem.Manager
	transport *transport.Transport
	store     *sqlite.Store
	registry  *prometheus.Registry
	events    *event.InMemoryDispatcher
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	verbose := flag.Bool("v", false, "Log at debug level regardless of configuration")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if flag.Arg(0) == "version" {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if *verbose {
		_ = logger.SetLevel("debug")
	}

	a, err := newApp(cfg, logger.GetZapLogger())
	if err != nil {
		logger.GetZapLogger().Error("failed to initialize", zap.Error(err))
		os.Exit(1)
	}
	defer a.close()

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "get":
		err = a.runGet(args)
	case "download":
		err = a.runDownload(args)
	case "history":
		err = a.runHistory(args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit))
		}
		a.logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

// exitError ends the process with a status code without logging
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func newApp(cfg *config.Config, zapLogger *zap.Logger) (*app, error) {
	fsManager, err := filesystem.NewManager(cfg.Download.TempDir)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.GetPath(cfg.Download.TempDir)
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", dbPath, err)
	}

	opts := transport.DefaultOptions()
	opts.Timeout = cfg.HTTP.GetTimeout()
	opts.RetryMax = cfg.HTTP.RetryMax
	opts.RetryWaitMin = cfg.HTTP.GetRetryWaitMin()
	opts.RetryWaitMax = cfg.HTTP.GetRetryWaitMax()
	opts.UserAgent = cfg.HTTP.UserAgent
	opts.SkipTLSVerify = cfg.HTTP.SkipTLSVerify
	opts.MaxBytesPerSecond = cfg.Download.MaxBytesPerSecond
	opts.ProgressInterval = cfg.Download.GetProgressInterval()
	opts.BufferSize = cfg.Download.GetBufferSize()

	registry := prometheus.NewRegistry()
	dispatcher := event.NewInMemoryDispatcher(false, logger.Named("events"))
	dispatcher.Subscribe(event.NewLoggingHandler(logger.Named("downloads")))
	dispatcher.Subscribe(event.NewJournalHandler(store))
	metrics, err := event.NewMetricsHandler(registry)
	if err != nil {
		store.Close()
		return nil, err
	}
	dispatcher.Subscribe(metrics)

	return &app{
		cfg:       cfg,
		logger:    zapLogger,
		fs:        fsManager,
		transport: transport.New(opts, fsManager, logger.Named("transport")),
		store:     store,
		registry:  registry,
		events:    dispatcher,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close journal", zap.Error(err))
	}
}

func (a *app) newManager() *downloader.Manager {
	return downloader.New(a.transport, a.fs, nil, a.events, a.logger.Named("downloader"))
}

func (a *app) newMaintenance() *maintenance.Service {
	return maintenance.New(&maintenance.Config{
		TempFileMaxAge:   a.cfg.Download.GetTempFileMaxAge(),
		JournalRetention: a.cfg.Database.GetJournalRetention(),
	}, a.fs, a.store, a.logger.Named("maintenance"))
}

// serveMetrics exposes the registry until ctx is done. It is a no-op when
// no bind address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.BindAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		a.logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
