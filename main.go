package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/slighter12/twinscene-go/commands"
	"github.com/slighter12/twinscene-go/config"
	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/editor"
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/transport/http"
	"github.com/slighter12/twinscene-go/transport/shared"
	"github.com/slighter12/twinscene-go/transport/stdio"
)

func main() {
	// Load configuration
	configPath, err := config.ResolveConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %+v", err)
	}
	if err := config.EnsureDefaultConfig(configPath); err != nil {
		log.Fatalf("Failed to write default configuration: %+v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %+v", err)
	}
	if cfg.Server.Debug {
		cfg.Logging.Level = "debug"
	}

	// Stdout belongs to the stdio transport, so the console log goes to stderr.
	if err := logger.Init(logger.GetLevelFromString(cfg.Logging.Level), logger.ParseFormat(cfg.Logging.Format), os.Stderr, cfg.Logging.Path); err != nil {
		log.Fatalf("Failed to initialize logger: %+v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e := editor.New(editor.Options{
		HistoryLimit:     cfg.History.Limit,
		TickInterval:     cfg.Animation.TickInterval(),
		ProgressInterval: cfg.Animation.ProgressInterval(),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	store, err := openStore(ctx, cfg, e)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := commands.NewManager()
	registry.RegisterAll(commands.All(&commands.Env{Editor: e, Store: store}))
	logger.Info("Commands registered", "count", len(registry.List()))

	var enabled []string
	for _, t := range cfg.Transports {
		if t.Enabled {
			enabled = append(enabled, t.Type)
		}
	}

	errCh := make(chan error, len(enabled))
	var servers sync.WaitGroup
	if cfg.TransportEnabled(config.TransportHTTP) {
		server := http.NewServer(cfg, registry, e.Events())
		servers.Add(1)
		go func() {
			defer servers.Done()
			errCh <- server.Start(ctx)
		}()
	}
	if cfg.TransportEnabled(config.TransportStdio) {
		info := shared.ServerInfo{Name: cfg.Name, Version: cfg.Version}
		server := stdio.NewStdioServer(registry, info, enabled, e.Events())
		servers.Add(1)
		go func() {
			defer servers.Done()
			err := server.Start(ctx)
			if err == nil {
				// The client closed stdin.
				cancel()
			}
			errCh <- err
		}()
	}
	logger.Info("Server started", "name", cfg.Name, "version", cfg.Version, "transports", enabled)

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-errCh:
		cancel()
	}
	servers.Wait()
	close(errCh)
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}
	if errors.Is(firstErr, context.Canceled) {
		firstErr = nil
	}
	logger.Info("Server stopped")
	return firstErr
}

// openStore opens the configured document store. File stores are watched
// when enabled, and outside edits are reported as DocumentChanged events.
func openStore(ctx context.Context, cfg *config.Config, e *editor.Editor) (document.Store, error) {
	if cfg.Document.Store == config.StoreSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Document.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		store, err := document.OpenSQLite(cfg.Document.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQLite document store", "path", cfg.Document.SQLitePath)
		return store, nil
	}

	store, err := document.NewFileStore(cfg.Document.Dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Using file document store", "dir", store.Dir())
	if !cfg.Document.Watch {
		return store, nil
	}

	err = store.Watch(ctx, func(name string) {
		logger.Info("Document changed on disk", "name", name)
		_ = e.Do(ctx, func() error {
			e.Events().Emit(events.DocumentChanged, map[string]string{"name": name})
			return nil
		})
	})
	if err != nil {
		logger.Warn("Document watching disabled", "dir", store.Dir(), "error", err)
	}
	return store, nil
}
