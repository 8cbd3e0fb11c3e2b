package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shubham78763/trafficSignal/internal/config"
	"github.com/shubham78763/trafficSignal/internal/storage"
	"github.com/shubham78763/trafficSignal/internal/storage/memory"
	pgstorage "github.com/shubham78763/trafficSignal/internal/storage/postgres"
	sqlitestorage "github.com/shubham78763/trafficSignal/internal/storage/sqlite"
	wsstorage "github.com/shubham78763/trafficSignal/internal/storage/websocket"
)

// storageEnv carries what the backends need besides their own config.
type storageEnv struct {
	Logger       *slog.Logger
	DBLogger     zerolog.Logger
	API          config.APIConfig
	SessionStart time.Time
}

func createStorageBackend(storageCfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch storageCfg.Type {
	case "postgres":
		fallback := filepath.Join(
			filepath.Dir(storageCfg.SQLite.Path),
			fmt.Sprintf("trafficsim_fallback_%s.db", env.SessionStart.Format("20060102_150405")),
		)
		logger.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host, "fallback", fallback)
		return pgstorage.New(pgstorage.Dependencies{
			Config:        storageCfg.Postgres,
			FallbackPath:  fallback,
			FlushInterval: storageCfg.FlushInterval,
			DBLogger:      env.DBLogger,
			Logger:        logger,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval:  storageCfg.SQLite.DumpInterval,
			DumpPath:      storageCfg.SQLite.Path,
			FlushInterval: storageCfg.FlushInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.Path)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(env.API.ServerURL) + "/ingest"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = env.API.APIKey
		}
		logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
