// Command bomberperson-client bridges a Bomberperson server connection to a
// local display/input peer reachable over UDP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bomberperson/internal/client"
	"bomberperson/internal/config"
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

	cfg, err := config.ParseClientFlags(args)
	if err != nil {
		logger.Log.WithError(err).Error("invalid configuration")
		return 1
	}

	serverConn, err := transport.DialServer(cfg.ServerAddress)
	if err != nil {
		logger.Log.WithError(err).Error("failed to dial server")
		return 1
	}
	defer serverConn.Close()

	display, err := transport.OpenDisplaySocket(cfg.Port, cfg.GUIAddress)
	if err != nil {
		logger.Log.WithError(err).Error("failed to open display socket")
		return 1
	}
	defer display.Close()

	logger.Log.WithFields(map[string]interface{}{
		"server": cfg.ServerAddress,
		"gui":    cfg.GUIAddress,
		"player": cfg.PlayerName,
		"port":   cfg.Port,
	}).Info("client connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := client.NewBridge(serverConn, display, cfg.PlayerName)
	if err := bridge.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("client stopped with error")
		return 1
	}

	return 0
}
