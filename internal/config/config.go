// Package config implements the composition root's flag-based
// configuration (spec.md §6.3): every CLI-recognized setting, parsed into
// a Config, validated once at startup, and sized against host memory where
// a default isn't given — mirroring the teacher's cmd/pokersrv flag set.
package config

import (
	"flag"
	"fmt"

	"github.com/pbnjay/memory"
)

// defaultMaxRoomsFloor is the smallest MaxRooms default this process ever
// picks, even on a host survey returns nothing useful for (containers with
// cgroup memory limits memory.TotalMemory can't see, or a survey failure
// returning 0).
const defaultMaxRoomsFloor = 16

// bytesPerRoomEstimate very roughly bounds one room's resident footprint
// (four hands, a bounded change log, bot/action-bus goroutines) — enough
// to turn "how much RAM does this host have" into a sane room cap without
// pretending to be a real capacity model.
const bytesPerRoomEstimate = 2 << 20 // 2 MiB

// Config is every setting spec.md §6.3 names the server process as
// recognizing.
type Config struct {
	ListenHost string
	ListenPort int
	StaticDir  string

	MaxRooms          int
	MaxPlayersPerRoom int

	HeartbeatIntervalMs int
	HeartbeatTimeoutMs  int
	PhaseTimeoutMs      map[string]int

	BotThinkDelayMsRange [2]int

	WinningScore int
	MaxRounds    int

	LogLevel string

	DBPath string
	Seed   int64
}

// defaultPhaseTimeoutMs matches spec.md §4.1's per-phase action-wait
// windows (after which a bot driver may act on a disconnected or idle
// seat's behalf). Parse defines no flag for them.
var defaultPhaseTimeoutMs = map[string]int{
	"DECLARATION": 15000,
	"TURN":        20000,
	"REDEAL":      10000,
}

// Parse builds a Config from args (typically os.Args[1:]), applying the
// same flag names and defaults as the teacher's cmd/pokersrv.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("liaptuisrv", flag.ContinueOnError)

	cfg := Config{PhaseTimeoutMs: map[string]int{}}
	var botThinkMin, botThinkMax int

	fs.StringVar(&cfg.ListenHost, "host", "127.0.0.1", "host to listen on")
	fs.IntVar(&cfg.ListenPort, "port", 0, "port to listen on (0 = random free port)")
	fs.StringVar(&cfg.StaticDir, "staticdir", "", "optional directory of static assets to serve alongside the websocket endpoint")

	fs.IntVar(&cfg.MaxRooms, "maxrooms", 0, "maximum concurrent rooms (0 = size from host memory)")
	fs.IntVar(&cfg.MaxPlayersPerRoom, "maxplayers", 4, "seats per room")

	fs.IntVar(&cfg.HeartbeatIntervalMs, "heartbeatintervalms", 15000, "heartbeat sweep interval, milliseconds")
	fs.IntVar(&cfg.HeartbeatTimeoutMs, "heartbeattimeoutms", 30000, "missed-heartbeat disconnect threshold, milliseconds")

	fs.IntVar(&botThinkMin, "botthinkminms", 400, "minimum bot decision delay, milliseconds")
	fs.IntVar(&botThinkMax, "botthinkmaxms", 1200, "maximum bot decision delay, milliseconds")

	fs.IntVar(&cfg.WinningScore, "winningscore", 50, "score a seat must reach to end the game")
	fs.IntVar(&cfg.MaxRounds, "maxrounds", 20, "round cap before the game ends regardless of score")

	fs.StringVar(&cfg.LogLevel, "debuglevel", "info", "logging level: trace, debug, info, warn, error")

	fs.StringVar(&cfg.DBPath, "db", "", "path to the SQLite snapshot database (empty = no persistence)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "deterministic RNG seed for decks (0 = random)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.BotThinkDelayMsRange = [2]int{botThinkMin, botThinkMax}
	for phase, ms := range defaultPhaseTimeoutMs {
		cfg.PhaseTimeoutMs[phase] = ms
	}

	if cfg.MaxRooms == 0 {
		cfg.MaxRooms = defaultMaxRooms()
	}

	return cfg, nil
}

// defaultMaxRooms sizes MaxRooms from host memory when the operator hasn't
// set one explicitly, mirroring the teacher's resource-aware defaults
// (cmd/pokersrv's own "0 = random free port" pattern for an unset flag,
// generalized here from "pick one reasonable value" to "derive one from
// this host").
func defaultMaxRooms() int {
	total := memory.TotalMemory()
	if total == 0 {
		return defaultMaxRoomsFloor
	}
	n := int(total / bytesPerRoomEstimate)
	if n < defaultMaxRoomsFloor {
		return defaultMaxRoomsFloor
	}
	return n
}

// Validate reports the first configuration error found, for the
// composition root to report and exit(1) on, per spec.md §6.3's exit-code
// contract.
func (c Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("config: port %d out of range", c.ListenPort)
	}
	if c.MaxRooms <= 0 {
		return fmt.Errorf("config: maxrooms must be positive, got %d", c.MaxRooms)
	}
	if c.MaxPlayersPerRoom != 4 {
		return fmt.Errorf("config: maxplayers must be 4, got %d", c.MaxPlayersPerRoom)
	}
	if c.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("config: heartbeatintervalms must be positive, got %d", c.HeartbeatIntervalMs)
	}
	if c.HeartbeatTimeoutMs <= c.HeartbeatIntervalMs {
		return fmt.Errorf("config: heartbeattimeoutms (%d) must exceed heartbeatintervalms (%d)", c.HeartbeatTimeoutMs, c.HeartbeatIntervalMs)
	}
	if c.BotThinkDelayMsRange[0] < 0 || c.BotThinkDelayMsRange[1] < c.BotThinkDelayMsRange[0] {
		return fmt.Errorf("config: invalid botthinkdelay range %v", c.BotThinkDelayMsRange)
	}
	if c.WinningScore <= 0 {
		return fmt.Errorf("config: winningscore must be positive, got %d", c.WinningScore)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("config: maxrounds must be positive, got %d", c.MaxRounds)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unrecognized debuglevel %q", c.LogLevel)
	}
	return nil
}
