// Command liaptuisrv is the composition root: it wires internal/config,
// internal/storage, internal/connreg, internal/room, internal/recovery,
// internal/transport, and internal/metrics into one running process,
// mirroring the teacher's cmd/pokersrv main() (flag parse -> db open ->
// log backend -> server construct -> listen -> serve) generalized from a
// single grpc.Server.Serve call to a websocket listener plus three
// background tickers (heartbeat sweep, snapshot sweep, resource sampling).
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/config"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/metrics"
	"github.com/liaptui/server/internal/recovery"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/storage"
	"github.com/liaptui/server/internal/transport"
	"github.com/vctt94/bisonbotkit/logging"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "liaptuisrv: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "liaptuisrv: %v\n", err)
		os.Exit(1)
	}

	// mainLog mirrors the teacher's own top-level logBackend.Logger("SERVER")
	// line in cmd/pokersrv/main.go — this is the one call site that actually
	// exercises bisonbotkit/logging's DebugLevel-parsing LogConfig. Every
	// subsystem logger below instead comes from a directly-built
	// *slog.Backend: internal/room takes that concrete type to mint its own
	// per-room ROOM/BOT/BUS loggers, and recovery, transport and the metrics
	// sampler take slog.Logger values minted from the same backend
	// (logging.LogBackend only exposes Logger(tag) slog.Logger, not a
	// *slog.Backend, so it can't supply the room's role — see DESIGN.md).
	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "liaptuisrv: log backend: %v\n", err)
		os.Exit(1)
	}
	mainLog := logBackend.Logger("MAIN")

	backend := slog.NewBackend(os.Stdout)
	level := parseLevel(cfg.LogLevel)
	for _, tag := range []string{"ROOM", "BUS", "BOT", "RECOVERY", "TRANSPORT", "METRICS"} {
		backend.Logger(tag).SetLevel(level)
	}

	repo, err := openRepository(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "liaptuisrv: storage: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	registry := connreg.New()
	rt := newRouter(cfg, registry, repo, backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := restoreRooms(rt.Rooms(), repo, mainLog); err != nil {
		mainLog.Warnf("liaptuisrv: snapshot reload: %v", err)
	}

	go runHeartbeatSweep(ctx, rt, cfg)
	go runSnapshotSweep(ctx, rt.Rooms(), repo, mainLog)
	sampleMetrics(ctx, backend.Logger("METRICS"))

	mux := http.NewServeMux()
	mux.Handle("/ws", rt)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort))
	if err != nil {
		fmt.Fprintf(os.Stderr, "liaptuisrv: listen: %v\n", err)
		os.Exit(2)
	}
	mainLog.Infof("liaptuisrv: listening on %s", lis.Addr())

	srv := &http.Server{Handler: mux}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		mainLog.Infof("liaptuisrv: shutting down")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		flushSnapshots(rt.Rooms(), repo, mainLog)
		if err := srv.Shutdown(drainCtx); err != nil {
			mainLog.Warnf("liaptuisrv: shutdown: %v", err)
		}
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "liaptuisrv: serve: %v\n", err)
			os.Exit(2)
		}
	}
}

// newRouter builds the room manager, recovery service, and transport router
// as one unit, since PublishRoom/PublishSeat/PublishLobby need the router
// to already exist before the manager that calls back into it.
func newRouter(cfg config.Config, registry *connreg.Registry, repo storage.SnapshotRepository, backend *slog.Backend) *transport.Router {
	rt := transport.New(transport.Config{}, nil, nil, registry, nil, backend.Logger("TRANSPORT"))
	manager := room.NewManager(room.Config{
		MaxRooms:     cfg.MaxRooms,
		WinningScore: cfg.WinningScore,
		MaxRounds:    cfg.MaxRounds,
		Seed:         cfg.Seed,
		BotThinkDelay: [2]time.Duration{
			time.Duration(cfg.BotThinkDelayMsRange[0]) * time.Millisecond,
			time.Duration(cfg.BotThinkDelayMsRange[1]) * time.Millisecond,
		},
	}, rt, rt, backend)
	rec := recovery.New(manager, registry, backend.Logger("RECOVERY"))
	rt.Bind(manager, rec)
	return rt
}

func openRepository(dbPath string) (storage.SnapshotRepository, error) {
	if dbPath == "" {
		return storage.NoopRepository{}, nil
	}
	return storage.NewSQLiteRepository(dbPath)
}

// restoreRooms reloads every room the repository still names as active,
// per SPEC_FULL.md's startup reload loop — a room with no saved snapshot
// (or a NoopRepository) just means the process starts with an empty lobby.
func restoreRooms(manager *room.Manager, repo storage.SnapshotRepository, log slog.Logger) error {
	ids, err := repo.RoomIDs()
	if err != nil {
		return fmt.Errorf("liaptuisrv: list saved rooms: %w", err)
	}
	for _, id := range ids {
		blob, _, ok, err := repo.LoadSnapshot(id)
		if err != nil {
			log.Warnf("liaptuisrv: load snapshot %s: %v", id, err)
			continue
		}
		if !ok {
			continue
		}
		if _, err := manager.RestoreRoom(blob); err != nil {
			log.Warnf("liaptuisrv: restore room %s: %v", id, err)
		}
	}
	return nil
}

// runHeartbeatSweep calls Router.SweepHeartbeats once per
// HeartbeatIntervalMs until ctx is canceled, moving any connection that
// missed two consecutive beats into a transport-loss disconnect.
func runHeartbeatSweep(ctx context.Context, rt *transport.Router, cfg config.Config) {
	interval := time.Duration(cfg.HeartbeatIntervalMs) * time.Millisecond
	timeout := time.Duration(cfg.HeartbeatTimeoutMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.SweepHeartbeats(timeout)
		}
	}
}

// runSnapshotSweep persists every active room's state once per interval, so
// a crash loses at most one sweep's worth of actions per room.
func runSnapshotSweep(ctx context.Context, manager *room.Manager, repo storage.SnapshotRepository, log slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids := manager.RoomIDs()
			for _, id := range ids {
				manager.SaveSnapshot(repo, id)
			}
			log.Debugf("liaptuisrv: snapshot sweep saved %d room(s)", len(ids))
		}
	}
}

// flushSnapshots saves every active room once, synchronously, as the last
// step of a graceful shutdown.
func flushSnapshots(manager *room.Manager, repo storage.SnapshotRepository, log slog.Logger) {
	for _, id := range manager.RoomIDs() {
		manager.SaveSnapshot(repo, id)
	}
	log.Infof("liaptuisrv: flushed snapshots for %d room(s)", len(manager.RoomIDs()))
}

// sampleMetrics starts the self-process resource sampler in its own
// goroutine. A /proc-less host (non-Linux, some containers) just means no
// sampling — purely observational, never worth failing startup over.
func sampleMetrics(ctx context.Context, log slog.Logger) {
	sampler, err := metrics.New(log, metrics.DefaultInterval)
	if err != nil {
		log.Warnf("liaptuisrv: metrics sampler unavailable: %v", err)
		return
	}
	go sampler.Run(ctx)
}

func parseLevel(name string) slog.Level {
	switch name {
	case "trace":
		return slog.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
