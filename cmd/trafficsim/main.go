package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shubham78763/trafficSignal/internal/api"
	"github.com/shubham78763/trafficSignal/internal/broadcast"
	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/dispatcher"
	"github.com/shubham78763/trafficSignal/internal/gateway"
	"github.com/shubham78763/trafficSignal/internal/influx"
	"github.com/shubham78763/trafficSignal/internal/logging"
	"github.com/shubham78763/trafficSignal/internal/monitor"
	intOtel "github.com/shubham78763/trafficSignal/internal/otel"
	"github.com/shubham78763/trafficSignal/internal/parser"
	"github.com/shubham78763/trafficSignal/internal/registry"
	"github.com/shubham78763/trafficSignal/internal/simulation"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/internal/worker"
	"github.com/spf13/viper"
)

const appName = "trafficsim"

var (
	// BuildVersion is set at build time with -ldflags.
	BuildVersion = "dev"
	BuildDate    = "unknown"
)

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if opts.Version {
		fmt.Printf("%s %s (%s)\n", appName, BuildVersion, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func applyOverrides(opts options) {
	if opts.LogLevel != "" {
		viper.Set("logLevel", opts.LogLevel)
	}
	if opts.Storage != "" {
		viper.Set("storage.type", opts.Storage)
	}
	if opts.Listen != "" {
		viper.Set("gateway.listen", opts.Listen)
	}
}

func run(ctx context.Context, opts options) error {
	sessionStart := time.Now()

	configErr := config.Load(opts.ConfigDir)
	applyOverrides(opts)

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logFile, err := os.OpenFile(logging.LogFilePath(logsDir, appName, sessionStart), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logLevel := config.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: OTel disabled: %v\n", appName, err)
		otelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var gelfWriter io.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: Graylog disabled: %v\n", appName, err)
		} else {
			defer w.Close()
			gelfWriter = w
		}
	}

	// Context attrs come from the registry, never the controller.
	reg := registry.New()
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{
		File:     logFile,
		Level:    logLevel,
		Provider: otelProvider.LoggerProvider(),
		GELF:     gelfWriter,
		Context: func() []slog.Attr {
			return []slog.Attr{
				slog.Int("intersections", reg.Len()),
				slog.Int("active", reg.ActiveCount()),
			}
		},
	})
	logger := slogManager.Logger()
	slog.SetDefault(logger)

	if configErr != nil {
		logger.Warn("Using default configuration", "error", configErr)
	}
	logger.Info("Starting",
		"version", BuildVersion,
		"buildDate", BuildDate,
		"configDir", opts.ConfigDir,
		"logLevel", logLevel,
	)

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, storageEnv{
		Logger:       logger,
		DBLogger:     logging.NewZerolog(logFile, logLevel, "database"),
		API:          config.GetAPIConfig(),
		SessionStart: sessionStart,
	})
	if err != nil {
		return err
	}
	var backends []storage.Backend
	if err := backend.Init(); err != nil {
		logger.Error("Storage backend unavailable, continuing without persistence", "type", storageCfg.Type, "error", err)
	} else {
		backends = append(backends, backend)
		if n := restoreIntersections(reg, backend, logger); n > 0 {
			logger.Info("Restored intersections", "count", n)
		}
	}

	simCfg := config.GetSimulationConfig()
	events, err := broadcast.New(logger, simCfg.SubscriberBuffer)
	if err != nil {
		return fmt.Errorf("create broadcaster: %w", err)
	}

	ctl := simulation.New(simulation.Config{
		SignalInterval:  simCfg.SignalInterval,
		ArrivalMin:      simCfg.ArrivalMin,
		ArrivalMax:      simCfg.ArrivalMax,
		ArrivalTTL:      simCfg.ArrivalTTL,
		HistoryCapacity: simCfg.HistoryCapacity,
		TTLStopsSignals: simCfg.TTLStopsSignals,
		Seed:            simCfg.Seed,
	},
		simulation.WithLogger(logger),
		simulation.WithBroadcaster(events),
		simulation.WithRegistry(reg),
	)

	seeds, err := config.GetSeedIntersections()
	if err != nil {
		logger.Warn("Ignoring seed intersections", "error", err)
	}
	if n := seedIntersections(ctl, seeds, backends, logger); n > 0 {
		logger.Info("Created seed intersections", "count", n)
	}

	var influxManager *influx.Manager
	var writers []worker.EventWriter
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backup := filepath.Join(logsDir, fmt.Sprintf("influx_backup_%s.lp.gz", sessionStart.Format("20060102_150405")))
		influxManager = influx.NewManager(logging.NewZerolog(logFile, logLevel, "influx"), influxCfg, backup)
		if err := influxManager.Connect(ctx); err != nil && !errors.Is(err, influx.ErrDisabled) {
			logger.Warn("InfluxDB connect failed", "error", err)
		}
		writers = append(writers, influxManager)
	}

	recorder := worker.NewRecorder(worker.RecorderDependencies{
		Lookup:   ctl.Intersection,
		Backends: backends,
		Writers:  writers,
		Logger:   logger,
		Buffer:   simCfg.SubscriberBuffer * 16,
	})
	recorder.Start(events)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(logFile, logLevel, "dispatcher")))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	manager := worker.NewManager(worker.Dependencies{
		Engine:        ctl,
		ParserService: parser.NewParser(logger),
		Logger:        logger,
		HistoryLimit:  simCfg.HistoryCapacity,
	}, backends...)
	manager.RegisterHandlers(d)

	var gw *gateway.Server
	if gwCfg := config.GetGatewayConfig(); gwCfg.Enabled {
		gw = gateway.New(gateway.Config{
			Listen:         gwCfg.Listen,
			AllowedOrigins: gwCfg.AllowedOrigins,
			Buffer:         simCfg.SubscriberBuffer,
		}, events, ctl, d, logger)
		if err := gw.Start(); err != nil {
			logger.Error("Gateway failed to start", "listen", gwCfg.Listen, "error", err)
			gw = nil
		}
	}

	monitorDeps := monitor.Dependencies{
		Engine:       ctl,
		Events:       events,
		Logger:       logger,
		Interval:     config.GetDuration("monitor.interval"),
		StatusFile:   filepath.Join(logsDir, "status.json"),
		QueueLengths: manager.QueueLengths,
	}
	if influxManager != nil {
		monitorDeps.Influx = influxManager
	}
	status := monitor.NewService(monitorDeps)
	if err := status.Start(); err != nil {
		logger.Warn("Status monitor not started", "error", err)
	}

	apiCfg := config.GetAPIConfig()
	apiClient := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if apiCfg.Upload {
		go checkServerStatus(ctx, apiClient, logger)
	}

	if opts.Autostart {
		for _, rec := range ctl.Intersections() {
			if err := ctl.Start(rec.ID); err != nil {
				logger.Warn("Autostart failed", "id", rec.ID, "error", err)
			}
		}
	}

	if opts.Console {
		go func() {
			if err := runConsole(os.Stdin, os.Stdout, d); err != nil {
				logger.Warn("Console stopped", "error", err)
			}
		}()
	}

	logger.Info("Engine ready", "intersections", reg.Len(), "storage", storageCfg.Type)
	<-ctx.Done()
	logger.Info("Shutting down")

	report := manager.Report()
	logger.Info("Session report",
		"intersections", report.Intersections,
		"totalVehicles", report.TotalVehicles,
		"historySampled", report.HistorySampled,
	)

	stopped := ctl.StopAll()
	logger.Info("Stopped running intersections", "count", stopped)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if gw != nil {
		if err := gw.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Gateway shutdown", "error", err)
		}
	}
	status.Stop()
	// Drain the status events produced by StopAll before closing sinks.
	recorder.Stop()
	d.Close()

	for _, b := range backends {
		if err := b.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if apiCfg.Upload {
		uploadCtx, cancelUpload := context.WithTimeout(context.Background(), 2*time.Minute)
		uploadExport(uploadCtx, apiClient, backends, logger)
		if err := apiClient.PostReport(uploadCtx, report); err != nil {
			logger.Error("Failed to post session report", "error", err)
		}
		cancelUpload()
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			logger.Warn("InfluxDB close", "error", err)
		}
	}
	events.Close()

	if err := slogManager.Flush(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: flush logs: %v\n", appName, err)
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: shutdown OTel: %v\n", appName, err)
	}
	return nil
}

func checkServerStatus(ctx context.Context, client *api.Client, logger *slog.Logger) {
	if err := client.Healthcheck(ctx); err != nil {
		logger.Warn("Collector not reachable, exports will not upload", "error", err)
		return
	}
	logger.Info("Collector reachable")
}

// uploadExport sends the export of every backend that produced one.
func uploadExport(ctx context.Context, client *api.Client, backends []storage.Backend, logger *slog.Logger) {
	for _, b := range backends {
		exp, ok := b.(storage.Exporter)
		if !ok {
			continue
		}
		path := exp.ExportPath()
		if path == "" {
			continue
		}
		if err := client.Upload(ctx, path, exp.ExportMetadata()); err != nil {
			logger.Error("Failed to upload export", "path", path, "error", err)
			continue
		}
		logger.Info("Uploaded export", "path", path)
	}
}

