// Package phase implements the room-level phase state machine (C4): the
// seven-state game progression WAITING -> PREPARATION -> DECLARATION ->
// TURN -> TURN_RESULTS -> (TURN | SCORING) -> (PREPARATION | GAME_OVER),
// with onEnter/onExit/handleAction semantics and the action-gating rules
// that keep illegal actions from ever reaching the broadcast primitive.
//
// This is a purpose-built interface state machine rather than a generic
// pull-based StateFn/Dispatch loop: every transition here is provoked by
// exactly one incoming Action and needs Accepts-gating before it runs,
// which a "call once, get the next function back" loop doesn't give us for
// free. See DESIGN.md for the longer reasoning.
package phase

import (
	"github.com/decred/slog"
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/wire"
)

// Name identifies one of the seven phases.
type Name string

const (
	Waiting      Name = "WAITING"
	Preparation  Name = "PREPARATION"
	Declaration  Name = "DECLARATION"
	Turn         Name = "TURN"
	TurnResults  Name = "TURN_RESULTS"
	Scoring      Name = "SCORING"
	GameOver     Name = "GAME_OVER"
)

// Action is one submitted player (or bot-driver/Manager synthetic) intent.
// Kind matches the client->server event vocabulary in internal/wire (plus
// the internal-only room-management kinds in room_actions.go) so the wire
// router, and internal/room, can build an Action directly.
type Action struct {
	Position int
	Kind     string
	Value    int      // declare
	PieceIDs []string // play

	PlayerName     string // join_room
	TargetPosition int    // add_bot, remove_bot: the seat acted on
	JoinOrder      []int  // leave_room: current join order, for host-transfer precedence
}

// ActionResult is what handleAction returns: either acceptance (state has
// already been mutated and broadcast by the time this returns) or a
// structured, state-preserving error. Room is populated only for the
// room-management kinds handleRoomAction serves.
type ActionResult struct {
	OK   bool
	Err  *wire.Error
	Room *RoomActionInfo
}

func ok() ActionResult                { return ActionResult{OK: true} }
func fail(e *wire.Error) ActionResult { return ActionResult{OK: false, Err: e} }

// State is one phase's behavior: what it accepts, who may act, and how it
// reacts to onEnter/onExit/handleAction. onEnter is the sole path that
// writes a phase's initial phaseData; handleAction may only mutate session
// state via Session.UpdatePhaseData.
type State interface {
	Name() Name
	OnEnter(gs *GameSession)
	OnExit(gs *GameSession)
	Accepts(kind string) bool
	HandleAction(gs *GameSession, a Action) ActionResult
}

// GameSession is everything a room's phase machine owns: the broadcast
// primitive (sequencing, change log, fan-out), the four seats, the active
// round, and game-level bookkeeping (score threshold, round cap, seed
// progression for successive deals).
type GameSession struct {
	*broadcast.Session

	Seats [round.SeatCount]*round.Seat
	Host  int

	Current     *round.Round
	RoundNumber int
	Multiplier  int
	BaseSeed    int64
	RedealCount int
	Starter     int

	WeakHands       []int
	RedealDecisions map[int]bool

	WinningScore int
	MaxRounds    int

	state State
	log  slog.Logger
}

// NewGameSession builds a session parked in WAITING, ready for seats to
// join and the host to start the game.
func NewGameSession(roomID string, host int, winningScore, maxRounds int, seed int64, publisher broadcast.Publisher, log slog.Logger) *GameSession {
	gs := &GameSession{
		Session:      broadcast.NewSession(roomID, publisher, log),
		Host:         host,
		BaseSeed:     seed,
		Multiplier:   1,
		WinningScore: winningScore,
		MaxRounds:    maxRounds,
		log:          log,
	}
	for i := range gs.Seats {
		gs.Seats[i] = &round.Seat{Position: i}
	}
	gs.transitionTo(&waitingState{})
	return gs
}

// Phase reports the current phase name.
func (gs *GameSession) Phase() Name {
	return gs.state.Name()
}

// stateFor maps a restored phase Name back to its State implementation,
// for RestoreState below. Every state here is otherwise reached only
// through transitionTo's own onEnter/onExit sequence.
func stateFor(name Name) State {
	switch name {
	case Preparation:
		return &preparationState{}
	case Declaration:
		return &declarationState{}
	case Turn:
		return &turnState{}
	case TurnResults:
		return &turnResultsState{}
	case Scoring:
		return &scoringState{}
	case GameOver:
		return &gameOverState{winner: -1}
	default:
		return &waitingState{}
	}
}

// RestoreState drops gs directly into name without running that state's
// OnEnter/OnExit: internal/storage's snapshot reload already restored
// PhaseData and every other GameSession field verbatim, so re-running
// OnEnter would overwrite the very state the snapshot just supplied.
// Mirrors the teacher's RestoreGame/SetGameState split (inject reconstructed
// state directly, never replay the setup path that produced it the first
// time).
func RestoreState(gs *GameSession, name Name) {
	gs.state = stateFor(name)
	gs.Session.Phase = string(name)
}

// currentSeed derives this round's deck seed from the base seed, the round
// number, and how many redeals have happened this round, so every reshuffle
// is still fully reproducible from BaseSeed alone.
func (gs *GameSession) currentSeed() int64 {
	return gs.BaseSeed + int64(gs.RoundNumber)*1000 + int64(gs.RedealCount)
}

// OrderFrom returns the four positions in turn order starting at start.
func OrderFrom(start int) []int {
	order := make([]int, round.SeatCount)
	for i := 0; i < round.SeatCount; i++ {
		order[i] = (start + i) % round.SeatCount
	}
	return order
}

// transitionTo runs the current state's OnExit (if any), swaps in next, and
// runs OnEnter, which is solely responsible for that state's initial
// phaseData.
func (gs *GameSession) transitionTo(next State) {
	if gs.state != nil {
		gs.state.OnExit(gs)
	}
	gs.state = next
	gs.Session.Phase = string(next.Name())
	next.OnEnter(gs)
}

// Dispatch is the action bus's sole entry point into this session. Room-
// management actions (join/leave/add-bot/remove-bot/disconnect/reconnect)
// are phase-independent and go straight to handleRoomAction; every other
// action gates on phase acceptance and seat-turn legality before handing
// off to the current state's HandleAction, which is itself only allowed to
// mutate state through UpdatePhaseData.
func (gs *GameSession) Dispatch(a Action) ActionResult {
	if isRoomAction(a.Kind) {
		return gs.handleRoomAction(a)
	}
	if !gs.state.Accepts(a.Kind) {
		return fail(wire.NewError(wire.ErrOutOfPhase, "action not accepted in phase "+string(gs.state.Name()), nil))
	}
	return gs.state.HandleAction(gs, a)
}
