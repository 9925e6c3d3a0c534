// Package actionbus implements the per-room action bus (C5): a single FIFO
// worker draining submitted actions one at a time, so that a room's state
// machine is never written to by more than one goroutine at once. This is
// the generalization of the teacher's EventProcessor (pkg/server/events.go)
// from a shared pool of N workers pulling off one global queue, to exactly
// one worker per room — the single-writer-per-room invariant spec.md §5
// requires rules out sharing workers across rooms.
package actionbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/phase"
)

// dedupeTTL bounds how long a (position, phase, turnNumber, actionKind) key
// stays eligible for a late-duplicate short-circuit.
const dedupeTTL = 2 * time.Second

// Dispatcher is satisfied by *phase.GameSession; kept as an interface so
// tests can substitute a fake.
type Dispatcher interface {
	Dispatch(a phase.Action) phase.ActionResult
	Phase() phase.Name
}

type dedupeEntry struct {
	result   phase.ActionResult
	expiry   time.Time
}

type submittedAction struct {
	action   phase.Action
	turnNumber int
	reply    chan phase.ActionResult
}

// Bus is one room's action queue and its single drain worker.
type Bus struct {
	log      slog.Logger
	session  Dispatcher
	queue    chan submittedAction
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	seq     int
	dedupe  map[string]dedupeEntry
	running bool
}

// New constructs a Bus for the given session. capacity bounds the queue
// depth; a full queue causes Submit to block, which is the desired
// backpressure for a per-room single-writer model.
func New(session Dispatcher, capacity int, log slog.Logger) *Bus {
	return &Bus{
		log:     log,
		session: session,
		queue:   make(chan submittedAction, capacity),
		stopChan: make(chan struct{}),
		dedupe:  map[string]dedupeEntry{},
	}
}

// Start launches the single drain worker.
func (b *Bus) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run()
}

// Stop cancels the worker; in-flight submissions that already reached the
// queue are still drained before it exits.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			for {
				select {
				case submitted := <-b.queue:
					b.process(submitted)
				default:
					return
				}
			}
		case submitted := <-b.queue:
			b.process(submitted)
		}
	}
}

func (b *Bus) process(submitted submittedAction) {
	b.mu.Lock()
	b.seq++
	actionSeq := b.seq
	key := dedupeKey(submitted.action, b.session.Phase(), submitted.turnNumber)
	if cached, ok := b.dedupe[key]; ok && time.Now().Before(cached.expiry) {
		b.mu.Unlock()
		b.log.Debugf("actionbus: duplicate action %s from position %d (actionSeq %d), returning cached result", submitted.action.Kind, submitted.action.Position, actionSeq)
		submitted.reply <- cached.result
		return
	}
	b.mu.Unlock()

	result := b.session.Dispatch(submitted.action)

	b.mu.Lock()
	b.dedupe[key] = dedupeEntry{result: result, expiry: time.Now().Add(dedupeTTL)}
	b.pruneExpiredLocked()
	b.mu.Unlock()

	submitted.reply <- result
}

func (b *Bus) pruneExpiredLocked() {
	now := time.Now()
	for k, v := range b.dedupe {
		if now.After(v.expiry) {
			delete(b.dedupe, k)
		}
	}
}

// dedupeKey identifies "the same request resubmitted": Position is the
// actor for every phase-gated action, but join_room has no seat yet, so it
// falls back to PlayerName as the acting identity instead.
func dedupeKey(a phase.Action, phaseName phase.Name, turnNumber int) string {
	actor := fmt.Sprintf("%d", a.Position)
	if a.PlayerName != "" {
		actor = a.PlayerName
	}
	return fmt.Sprintf("%s:%s:%d:%s", actor, phaseName, turnNumber, a.Kind)
}

// Submit enqueues an action and blocks until the room's worker has
// processed it (or short-circuited it as a duplicate), returning the
// result. turnNumber is supplied by the caller (the wire router reads it
// off the room's current phaseData) since the bus itself must not read
// round state outside the worker goroutine.
func (b *Bus) Submit(a phase.Action, turnNumber int) phase.ActionResult {
	reply := make(chan phase.ActionResult, 1)
	b.queue <- submittedAction{action: a, turnNumber: turnNumber, reply: reply}
	return <-reply
}
