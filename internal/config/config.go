// Package config holds the typed configuration both programs run with.
// Parsing the command line into these structs is a thin, intentionally
// minimal layer (full option validation is an out-of-scope external
// collaborator); what matters for the core is the typed values below.
package config

import (
	"flag"
	"fmt"
	"time"
)

// Server is the server's immutable run configuration (spec §5.2, §6.2).
type Server struct {
	ServerName      string
	PlayersCount    uint8
	BombTimer       uint16
	TurnDurationMs  uint64
	ExplosionRadius uint16
	InitialBlocks   uint16
	GameLength      uint16
	SizeX           uint16
	SizeY           uint16
	Seed            uint32
	Port            uint16
}

// TurnDuration returns TurnDurationMs as a time.Duration.
func (c Server) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationMs) * time.Millisecond
}

// ParseServerFlags loads a Server config from args (typically os.Args[1:]).
// It returns an error for any missing required option, matching the exit
// code 1 contract in spec §6.2; DNS/address resolution is handled separately
// by the transport package at dial/listen time.
func ParseServerFlags(args []string) (Server, error) {
	fs := flag.NewFlagSet("bomberperson-server", flag.ContinueOnError)

	name := fs.String("server-name", "", "announced server name (required)")
	playersCount := fs.Uint("players-count", 0, "number of players (1-255, required)")
	bombTimer := fs.Uint("bomb-timer", 0, "ticks before a bomb explodes (required)")
	turnDuration := fs.Uint64("turn-duration", 0, "milliseconds between turns (required)")
	explosionRadius := fs.Uint("explosion-radius", 0, "blast radius in cells (required)")
	initialBlocks := fs.Uint("initial-blocks", 0, "blocks placed at game start (required)")
	gameLength := fs.Uint("game-length", 0, "number of turns per game (required)")
	sizeX := fs.Uint("size-x", 0, "board width (required)")
	sizeY := fs.Uint("size-y", 0, "board height (required)")
	seed := fs.Uint("seed", uint(time.Now().UnixNano()), "RNG seed (default: current time)")
	port := fs.Uint("port", 0, "TCP listen port (required)")

	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}

	if *name == "" {
		return Server{}, fmt.Errorf("config: missing required option -server-name")
	}
	if *playersCount == 0 || *playersCount > 255 {
		return Server{}, fmt.Errorf("config: -players-count must be in [1,255]")
	}
	if *turnDuration == 0 {
		return Server{}, fmt.Errorf("config: missing required option -turn-duration")
	}
	if *gameLength == 0 {
		return Server{}, fmt.Errorf("config: missing required option -game-length")
	}
	if *sizeX == 0 || *sizeY == 0 {
		return Server{}, fmt.Errorf("config: missing required option -size-x/-size-y")
	}
	if *port == 0 {
		return Server{}, fmt.Errorf("config: missing required option -port")
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, opt := range []string{"bomb-timer", "explosion-radius", "initial-blocks"} {
		if !set[opt] {
			return Server{}, fmt.Errorf("config: missing required option -%s", opt)
		}
	}

	return Server{
		ServerName:      *name,
		PlayersCount:    uint8(*playersCount),
		BombTimer:       uint16(*bombTimer),
		TurnDurationMs:  *turnDuration,
		ExplosionRadius: uint16(*explosionRadius),
		InitialBlocks:   uint16(*initialBlocks),
		GameLength:      uint16(*gameLength),
		SizeX:           uint16(*sizeX),
		SizeY:           uint16(*sizeY),
		Seed:            uint32(*seed),
		Port:            uint16(*port),
	}, nil
}

// Client is the client's run configuration (spec §6.2).
type Client struct {
	GUIAddress    string
	ServerAddress string
	PlayerName    string
	Port          uint16
}

// ParseClientFlags loads a Client config from args.
func ParseClientFlags(args []string) (Client, error) {
	fs := flag.NewFlagSet("bomberperson-client", flag.ContinueOnError)

	guiAddr := fs.String("gui-address", "", "display peer address (required)")
	serverAddr := fs.String("server-address", "", "server address (required)")
	playerName := fs.String("player-name", "", "name to send on Join (required)")
	port := fs.Uint("port", 0, "local UDP port (required)")

	if err := fs.Parse(args); err != nil {
		return Client{}, err
	}

	if *guiAddr == "" {
		return Client{}, fmt.Errorf("config: missing required option -gui-address")
	}
	if *serverAddr == "" {
		return Client{}, fmt.Errorf("config: missing required option -server-address")
	}
	if *playerName == "" {
		return Client{}, fmt.Errorf("config: missing required option -player-name")
	}
	if *port == 0 {
		return Client{}, fmt.Errorf("config: missing required option -port")
	}

	return Client{
		GUIAddress:    *guiAddr,
		ServerAddress: *serverAddr,
		PlayerName:    *playerName,
		Port:          uint16(*port),
	}, nil
}
