// Package bot implements the Bot driver (C9): one instance per room that
// reacts to every phase_change notification by computing and submitting an
// action, through the Action bus like any client, for each bot-controlled
// seat currently expected to act. It decorates the room's broadcast.Publisher
// rather than polling, grounded on the teacher's pkg/poker/table.go
// HandleTimeouts auto-action pattern generalized from "called once per
// tick" to "called on every state-change notification" — the latter fits a
// broadcast-driven room better than a polling loop would.
package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/wire"
)

// Submitter is satisfied by *actionbus.Bus; kept as an interface so tests
// can substitute a fake.
type Submitter interface {
	Submit(a phase.Action, turnNumber int) phase.ActionResult
}

// Driver wraps a room's real broadcast.Publisher. It forwards every call
// unchanged and, on a phase_change event, computes and schedules decisions
// for every bot seat expected to act next. Decisions are computed
// synchronously inside PublishRoom, while the room's single action-bus
// worker is the only goroutine touching the session — only the already-
// computed action and a think-delay timer cross into the background
// goroutine that eventually calls Submit.
type Driver struct {
	log      slog.Logger
	strategy Strategy
	inner    broadcast.Publisher

	minDelay time.Duration
	maxDelay time.Duration
	rng      *rand.Rand

	mu      sync.Mutex
	session *phase.GameSession
	bus     Submitter
	pending map[int]context.CancelFunc
}

// NewDriver constructs a Driver decorating inner. Session and bus are bound
// afterward via BindSession/BindBus, since both the session and the action
// bus are constructed after their publisher (this Driver) in the room
// manager's wiring order.
func NewDriver(strategy Strategy, inner broadcast.Publisher, thinkDelay [2]time.Duration, log slog.Logger) *Driver {
	return &Driver{
		log:      log,
		strategy: strategy,
		inner:    inner,
		minDelay: thinkDelay[0],
		maxDelay: thinkDelay[1],
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		pending:  map[int]context.CancelFunc{},
	}
}

// BindSession attaches the session this driver reads decisions from.
func (d *Driver) BindSession(session *phase.GameSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session = session
}

// BindBus attaches the action bus decisions are submitted through.
func (d *Driver) BindBus(bus Submitter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bus = bus
}

// PublishRoom forwards to inner and, for a phase_change frame, evaluates
// every bot seat for a pending decision.
func (d *Driver) PublishRoom(roomID, event string, data interface{}, seq int) {
	d.inner.PublishRoom(roomID, event, data, seq)
	if event == wire.EventPhaseChange {
		d.evaluate()
	}
}

// PublishSeat forwards to inner unchanged; hand_updated frames carry no
// decision-relevant phase transition.
func (d *Driver) PublishSeat(roomID string, position int, event string, data interface{}) {
	d.inner.PublishSeat(roomID, position, event, data)
}

// Nudge re-evaluates every bot seat immediately, without waiting for the
// next phase_change notification. A disconnect mid-turn flips a seat to
// isBot=true but doesn't itself produce a phase_change — spec.md §4.9
// requires the driver to take over "immediately", so the Room manager calls
// this right after marking the seat bot-controlled.
func (d *Driver) Nudge() {
	d.evaluate()
}

// CancelPending cancels any bot decision scheduled but not yet submitted for
// position, used by C10 on a human reconnect so a stale bot action can't
// race the reconnected client's own action.
func (d *Driver) CancelPending(position int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cancel, ok := d.pending[position]; ok {
		cancel()
		delete(d.pending, position)
	}
}

// Stop cancels every pending decision, for room teardown.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for pos, cancel := range d.pending {
		cancel()
		delete(d.pending, pos)
	}
}

func (d *Driver) evaluate() {
	d.mu.Lock()
	gs := d.session
	bus := d.bus
	d.mu.Unlock()
	if gs == nil || bus == nil {
		return
	}

	phaseData, ok := gs.PhaseData.(phase.PhaseData)
	if !ok {
		return
	}

	switch gs.Phase() {
	case phase.Preparation:
		d.evaluatePreparation(gs)
	case phase.Declaration:
		d.evaluateDeclaration(gs, phaseData)
	case phase.Turn:
		d.evaluateTurn(gs)
	}
}

func (d *Driver) evaluatePreparation(gs *phase.GameSession) {
	for _, pos := range gs.WeakHands {
		if _, decided := gs.RedealDecisions[pos]; decided {
			continue
		}
		seat := gs.Seats[pos]
		if !seat.IsBot {
			continue
		}
		hand := copyHand(seat.Hand)
		kind := wire.EventDeclineRedeal
		if d.strategy.AcceptRedeal(hand) {
			kind = wire.EventAcceptRedeal
		}
		d.schedule(pos, phase.Action{Position: pos, Kind: kind}, 0)
	}
}

func (d *Driver) evaluateDeclaration(gs *phase.GameSession, pd phase.PhaseData) {
	if pd.NextDeclarer == nil {
		return
	}
	pos := *pd.NextDeclarer
	seat := gs.Seats[pos]
	if !seat.IsBot {
		return
	}
	if _, declared := gs.Current.Declarations[pos]; declared {
		return
	}

	hand := copyHand(seat.Hand)
	var prior []int
	for _, v := range gs.Current.Declarations {
		prior = append(prior, *v)
	}
	isLast := len(gs.Current.Declarations) == round.SeatCount-1
	value := d.strategy.Declare(hand, prior, isLast)
	d.schedule(pos, phase.Action{Position: pos, Kind: wire.EventDeclare, Value: value}, 0)
}

func (d *Driver) evaluateTurn(gs *phase.GameSession) {
	order := phase.OrderFrom(gs.Current.CurrentLeader)
	pos := phase.NextToAct(gs.Current, order)
	seat := gs.Seats[pos]
	if !seat.IsBot {
		return
	}
	if _, played := gs.Current.CurrentPlays[pos]; played {
		return
	}

	declared := 0
	if seat.Declared != nil {
		declared = *seat.Declared
	}
	hand := copyHand(seat.Hand)

	var chosen []piece.Piece
	if gs.Current.RequiredPieceCount == nil {
		chosen = d.strategy.PlayLeader(hand, declared, seat.CapturedPiles)
	} else {
		leaderPlay := gs.Current.CurrentPlays[gs.Current.CurrentLeader]
		chosen = d.strategy.PlayFollower(hand, declared, seat.CapturedPiles, *gs.Current.RequiredPieceCount, leaderPlay)
	}

	ids := make([]string, len(chosen))
	for i, p := range chosen {
		ids[i] = p.ID
	}
	d.schedule(pos, phase.Action{Position: pos, Kind: wire.EventPlay, PieceIDs: ids}, gs.Current.TurnNumber)
}

func copyHand(hand []piece.Piece) []piece.Piece {
	out := make([]piece.Piece, len(hand))
	copy(out, hand)
	return out
}

// schedule submits action after a randomized think delay, guarding against a
// second notification scheduling a duplicate decision for the same seat
// before the first has been submitted.
func (d *Driver) schedule(position int, action phase.Action, turnNumber int) {
	d.mu.Lock()
	if _, already := d.pending[position]; already {
		d.mu.Unlock()
		return
	}
	delay := d.thinkDelay()
	ctx, cancel := context.WithCancel(context.Background())
	d.pending[position] = cancel
	bus := d.bus
	d.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			bus.Submit(action, turnNumber)
		}
		d.mu.Lock()
		delete(d.pending, position)
		d.mu.Unlock()
	}()
}

func (d *Driver) thinkDelay() time.Duration {
	span := d.maxDelay - d.minDelay
	if span <= 0 {
		return d.minDelay
	}
	return d.minDelay + time.Duration(d.rng.Int63n(int64(span)))
}
