// Command bomberperson-server runs the authoritative game server: it
// accepts peer connections, admits them into a lobby, and drives the
// turn-based simulation to completion, forever cycling lobby->game->lobby.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bomberperson/internal/config"
	"bomberperson/internal/server"
	"bomberperson/internal/transport"
	"bomberperson/internal/version"
	"bomberperson/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	for _, a := range args {
		if a == "-version" || a == "--version" {
			fmt.Println(version.String())
			return 0
		}
	}

	logger.Init()

	cfg, err := config.ParseServerFlags(args)
	if err != nil {
		logger.Log.WithError(err).Error("invalid configuration")
		return 1
	}

	ln, err := transport.Listen(cfg.Port)
	if err != nil {
		logger.Log.WithError(err).Error("failed to listen")
		return 1
	}

	logger.Log.WithFields(map[string]interface{}{
		"server_name":   cfg.ServerName,
		"port":          cfg.Port,
		"players_count": cfg.PlayersCount,
		"game_length":   cfg.GameLength,
		"seed":          cfg.Seed,
	}).Info("server listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := server.NewManager(cfg)
	if err := m.Run(ctx, ln); err != nil {
		logger.Log.WithError(err).Error("server stopped with error")
		return 1
	}

	return 0
}
