// Package metrics implements the composition root's self-process resource
// sampler: a background goroutine that periodically logs this process's own
// RSS, open file descriptor count, and goroutine count at Debug level, per
// SPEC_FULL.md's self-process metrics sampling feature. It adds no
// externally reachable surface — the admin-tooling Non-goal rules out an
// HTTP metrics endpoint, but ambient observability via the existing log
// stream is still carried, matching every other package's logging
// convention (grounded on the teacher's per-component slog.Logger use
// throughout pkg/server and internal/recovery).
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/decred/slog"
	"github.com/prometheus/procfs"
)

// DefaultInterval is how often Sampler logs a reading when the composition
// root doesn't override it — spec.md's supplemented-features description
// names 30s.
const DefaultInterval = 30 * time.Second

// Sampler periodically logs this process's own resource usage.
type Sampler struct {
	proc     procfs.Proc
	log      slog.Logger
	interval time.Duration
}

// New opens this process's /proc/self entry. Returns an error if /proc
// isn't mounted (non-Linux hosts, some containers) — callers may choose to
// log and continue without sampling rather than fail startup over it, since
// this is purely observational.
func New(log slog.Logger, interval time.Duration) (*Sampler, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{proc: proc, log: log, interval: interval}, nil
}

// Run logs one reading every interval until ctx is canceled. Intended to be
// launched in its own goroutine by the composition root.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample logs a single reading, swallowing per-field errors (a transient
// /proc read failure shouldn't spam the log at a higher level than Debug).
func (s *Sampler) sample() {
	rssBytes := 0
	if stat, err := s.proc.Stat(); err == nil {
		rssBytes = stat.ResidentMemory()
	}
	openFDs := 0
	if n, err := s.proc.FileDescriptorsLen(); err == nil {
		openFDs = n
	}
	s.log.Debugf("metrics: rss=%d bytes open_fds=%d goroutines=%d", rssBytes, openFDs, runtime.NumGoroutine())
}
