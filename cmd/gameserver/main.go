// Package main provides the game server binary: WebSocket endpoints for
// the whot and draughts games plus the session-creation HTTP surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/draughts"
	"github.com/cory-johannsen/parlor/internal/game/whot"
	"github.com/cory-johannsen/parlor/internal/observability"
	"github.com/cory-johannsen/parlor/internal/server"
	"github.com/cory-johannsen/parlor/internal/transport/httpapi"
	"github.com/cory-johannsen/parlor/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = config.Default()
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Duration("pacing_delay", cfg.Whot.PacingDelay),
		zap.Int("default_players", cfg.Whot.DefaultPlayers),
	)

	registry := whot.NewRegistry(cfg.Whot, logger)
	broker := draughts.NewBroker(logger)

	acceptor := ws.NewAcceptor(cfg.Server, logger)
	acceptor.Register("whot", whot.NewHandler(registry, logger))
	acceptor.Register("draughts", draughts.NewHandler(broker, logger))
	acceptor.RegisterHTTP(httpapi.Pattern, httpapi.New(registry, logger))

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("websocket-acceptor", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("game server ready", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("game server exited", zap.Error(err))
	}
	logger.Info("game server stopped")
}
