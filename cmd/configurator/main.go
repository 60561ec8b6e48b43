package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"spapperi-configurator/internal/config"
	"spapperi-configurator/internal/pkg/logger"
	"spapperi-configurator/internal/repository/file"
	"spapperi-configurator/internal/repository/memory"
	"spapperi-configurator/internal/repository/redisstore"
	"spapperi-configurator/internal/tui"
	"spapperi-configurator/pkg/configurator"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	relayURL := flag.String("relay", cfg.Client.RelayURL, "base URL of the chat relay")
	storeKind := flag.String("store", cfg.Client.StoreKind, "where the conversation id is kept: file, redis or memory")
	storePath := flag.String("store-path", cfg.Client.StorePath, "session file used by -store file")
	visitor := flag.String("visitor", cfg.Client.VisitorID, "visitor key used by -store redis and memory")
	flag.Parse()

	// The TUI owns the terminal, so logs only go to the file
	appLogger := logger.NewIsolatedLogger(cfg.Client.LogFilePath)
	defer appLogger.Sync()

	store, closeStore, err := openStore(*storeKind, *storePath, *visitor, cfg.App.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	client := configurator.NewClient(*relayURL)
	ctrl := configurator.NewController(client, store,
		configurator.WithLogger(appLogger),
		configurator.WithTurnTimeout(cfg.Client.TurnTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	linkFor := func(exportFile string) string {
		if strings.HasPrefix(exportFile, "http://") || strings.HasPrefix(exportFile, "https://") {
			return exportFile
		}
		return client.ExportURL(ctrl.SessionID())
	}

	appLogger.Info("Configurator", "Starting terminal configurator", map[string]interface{}{
		"relay": *relayURL,
		"store": *storeKind,
	})

	p := tea.NewProgram(tui.NewModel(ctx, ctrl, linkFor), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		appLogger.Error("Configurator", "Terminal UI stopped", map[string]interface{}{"error": err.Error()})
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if id := ctrl.SessionID(); id != "" {
		fmt.Printf("Conversazione salvata (%s). Rilancia il configuratore per riprenderla.\n", id)
	}
}

func openStore(kind, path, visitor, redisURL string) (configurator.IdentityStore, func(), error) {
	noop := func() {}

	switch kind {
	case "file":
		return file.NewIdentityStore(path), noop, nil
	case "memory":
		return memory.NewSessionRepository().ForVisitor(visitor), noop, nil
	case "redis":
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("redis unreachable: %w", err)
		}
		return redisstore.NewIdentityStore(rdb, visitor), func() { rdb.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q, want file, redis or memory", kind)
	}
}
