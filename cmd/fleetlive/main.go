package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/fleetlive/tracker/internal/api"
	"github.com/fleetlive/tracker/internal/config"
	"github.com/fleetlive/tracker/internal/connection"
	"github.com/fleetlive/tracker/internal/influx"
	"github.com/fleetlive/tracker/internal/logging"
	"github.com/fleetlive/tracker/internal/monitor"
	intOtel "github.com/fleetlive/tracker/internal/otel"
	"github.com/fleetlive/tracker/internal/session"
	"github.com/fleetlive/tracker/internal/store"
)

const appName = "fleetlive"

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	selectDriver := flag.String("select", "", "device id to focus on start")
	flag.Parse()

	if err := run(*configDir, *selectDriver); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(configDir, selectDriver string) error {
	sessionStart := time.Now()

	// .env is optional
	_ = godotenv.Load()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	configLoaded := true
	if err := config.Load(configDir); err != nil {
		configLoaded = false
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config")
	}

	logLevel := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	var logFile io.Writer
	logFilePath := logging.LogFilePath(logsDir, appName, sessionStart)
	if f, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644); err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		defer f.Close()
		logFile = f
		logger.Info("Begin logging in logs directory", "path", logFilePath)
	}

	// OTel provider writes to the session log and an optional OTLP endpoint
	otelCfg := config.GetOTelConfig()
	otelCfg.LogWriter = logFile
	otelCfg.InstanceID = fmt.Sprintf("%s-%s", appName, sessionStart.Format("20060102_150405"))
	otelProvider, err := intOtel.New(otelCfg)
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider, _ = intOtel.New(intOtel.Config{})
	} else if otelProvider.Enabled() {
		logger.Info("OTel provider initialized", "service", otelProvider.ServiceName(), "endpoint", otelCfg.Endpoint)
	}

	// the channel manager is installed once created; records logged before
	// that carry no connection attributes
	var current atomic.Pointer[connection.Manager]
	setupOpts := []logging.SetupOption{
		logging.WithContext(logging.ConnectionContext(func() logging.ConnectionSource {
			if m := current.Load(); m != nil {
				return m
			}
			return nil
		}), slog.String("app", appName)),
	}
	if config.GetBool("graylog.enabled") {
		gelfWriter, err := logging.NewGraylogWriter(config.GetString("graylog.address"), appName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			defer gelfWriter.Close()
			setupOpts = append(setupOpts, logging.WithGraylog(gelfWriter))
		}
	}
	slogManager.Setup(logFile, logLevel, otelProvider.LoggerProvider(), setupOpts...)
	logger = slogManager.Logger()
	logger.Info("Logging to file", "path", logFilePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// live state
	storeCfg := config.GetStoreConfig()
	apiCfg := config.GetAPIConfig()
	storeOpts := []store.Option{
		store.WithHistoryLimit(storeCfg.HistoryLimit),
		store.WithAlertLimit(storeCfg.AlertLimit),
		store.WithLogger(logger),
	}
	if storeCfg.RejectStaleSamples {
		storeOpts = append(storeOpts, store.RejectStaleSamples())
	}
	liveStore := store.New(storeOpts...)

	// REST collaborator
	var client *api.Client
	if apiCfg.ServerURL != "" {
		client = api.New(apiCfg.ServerURL, apiCfg.Token)
		if err := client.Healthcheck(ctx); err != nil {
			logger.Warn("REST server not healthy", "error", err, "url", apiCfg.ServerURL)
		} else if drivers, err := client.Drivers(ctx); err != nil {
			logger.Warn("Failed to fetch initial roster", "error", err)
		} else {
			liveStore.ApplyRosterUpdate(drivers)
			logger.Info("Loaded initial roster", "drivers", len(drivers))
		}
	}

	// telemetry channel
	eventLogger := logging.NewDispatcherLogger(logging.NewZerolog(logFile, logLevel, "dispatcher"))
	manager, err := connection.New(config.GetChannelConfig(),
		connection.WithLogger(logger),
		connection.WithEventLogger(eventLogger),
	)
	if err != nil {
		return fmt.Errorf("creating channel manager: %w", err)
	}
	current.Store(manager)

	if configLoaded {
		config.Watch(func(e fsnotify.Event) {
			logger.Info("Config file changed, restart to apply channel and store settings", "file", e.Name)
		})
	}

	if client != nil {
		liveStore.SetHistoryLoader(api.NewHistoryLoader(client, liveStore, logger))
	} else {
		liveStore.SetHistoryLoader(manager)
	}

	// metrics sink
	var metrics monitor.PointWriter
	influxManager := influx.NewManager(
		config.GetInfluxConfig(),
		logging.NewZerolog(logFile, logLevel, "influx"),
		filepath.Join(logsDir, fmt.Sprintf("%s.%s.influx.gz", appName, sessionStart.Format("20060102_150405"))),
	)
	if err := influxManager.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			logger.Error("Failed to initialize InfluxDB", "error", err)
		}
	} else {
		metrics = influxManager
	}
	defer influxManager.Close()

	if err := session.Start(ctx, manager, liveStore, logger); err != nil {
		logger.Warn("Initial connection failed, retrying in background", "error", err)
	}

	if selectDriver != "" {
		liveStore.SelectDriver(selectDriver)
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		Source:     liveStore,
		Connection: manager,
		Metrics:    metrics,
		Logger:     logger,
		Interval:   config.GetDuration("monitor.interval"),
		StatusFile: filepath.Join(logsDir, "status.json"),
	})
	if err := monitorService.Start(ctx); err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	monitorService.Stop()
	monitorService.Collect()
	manager.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := slogManager.Flush(shutdownCtx); err != nil {
		logger.Error("Failed to flush logs", "error", err)
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down OTel provider", "error", err)
	}
	return nil
}
