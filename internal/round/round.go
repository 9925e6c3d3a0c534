// Package round implements the Round model (C3): dealing, declarations,
// turn order, pile tracking, and round-result yielding. It owns no network
// or broadcast concerns; the phase state machine drives it and reports
// results through updatePhaseData.
package round

import (
	"fmt"

	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/rules"
)

// Seat is one of the four fixed positions in a room's game session.
type Seat struct {
	Position      int          `json:"position"`
	Name          string       `json:"name"`
	IsBot         bool         `json:"isBot"`
	IsOriginalBot bool         `json:"isOriginalBot"`
	Score         int          `json:"score"`
	Hand          []piece.Piece `json:"hand"`
	Declared      *int         `json:"declared"`
	CapturedPiles int          `json:"capturedPiles"`
}

const SeatCount = 4

// Round holds everything scoped to a single deal: the shuffled hands, the
// running declarations, the in-progress turn, and the pile history that
// feeds scoring once every hand empties.
type Round struct {
	Number             int            `json:"number"`
	Multiplier         int            `json:"multiplier"`
	Declarations       map[int]*int   `json:"declarations"`
	TurnNumber         int            `json:"turnNumber"`
	CurrentLeader      int            `json:"currentLeader"`
	RequiredPieceCount *int           `json:"requiredPieceCount"`
	CurrentPlays       map[int]piece.Play `json:"currentPlays"`
	Passed             map[int]bool   `json:"passed"`
	PileHistory        []PileRecord   `json:"pileHistory"`
}

// PileRecord is one resolved turn: who won it and how many pieces it held.
type PileRecord struct {
	TurnNumber int `json:"turnNumber"`
	Winner     int `json:"winner"`
	PileSize   int `json:"pileSize"`
}

// NewRound deals a fresh deck (seeded, so reproducible for a given seed) to
// the four seats, starting the turn order at starter.
func NewRound(number, multiplier int, seats [SeatCount]*Seat, seed int64, starter int) (*Round, error) {
	deck := piece.NewDeck(seed)
	hands, err := piece.Deal(deck, SeatCount, len(deck)/SeatCount)
	if err != nil {
		return nil, fmt.Errorf("round: deal: %w", err)
	}
	for i, s := range seats {
		s.Hand = hands[i]
		s.Declared = nil
		s.CapturedPiles = 0
	}

	return &Round{
		Number:        number,
		Multiplier:    multiplier,
		Declarations:  map[int]*int{},
		TurnNumber:    0,
		CurrentLeader: starter,
		CurrentPlays:  map[int]piece.Play{},
		Passed:        map[int]bool{},
		PileHistory:   []PileRecord{},
	}, nil
}

// WeakHandPositions returns the positions whose dealt hand qualifies as
// weak, for the redeal sub-protocol gate in PREPARATION.
func WeakHandPositions(seats [SeatCount]*Seat) []int {
	var weak []int
	for _, s := range seats {
		if piece.IsWeakHand(s.Hand) {
			weak = append(weak, s.Position)
		}
	}
	return weak
}

// ValidateDeclare checks whether position may declare value without
// mutating any state: used by the phase layer to decide an ActionResult
// before it enters the broadcast primitive, since invalid actions must
// never mutate state.
func (r *Round) ValidateDeclare(position, value int) error {
	if _, exists := r.Declarations[position]; exists {
		return fmt.Errorf("round: position %d already declared", position)
	}
	if value < 0 || value > 8 {
		return fmt.Errorf("round: declaration %d out of range 0..8", value)
	}
	if len(r.Declarations) == SeatCount-1 {
		sum := value
		for _, v := range r.Declarations {
			sum += *v
		}
		if sum == 8 {
			return fmt.Errorf("round: declaration %d would make sum equal 8", value)
		}
	}
	return nil
}

// CommitDeclare records position's declaration. Callers must have already
// succeeded a ValidateDeclare for the same arguments.
func (r *Round) CommitDeclare(position, value int) {
	v := value
	r.Declarations[position] = &v
}

// Declare validates and commits in one step, for callers that don't need the
// split; internal/phase uses ValidateDeclare and CommitDeclare instead.
func (r *Round) Declare(position, value int) error {
	if err := r.ValidateDeclare(position, value); err != nil {
		return err
	}
	r.CommitDeclare(position, value)
	return nil
}

// AllDeclared reports whether every seat has declared this round.
func (r *Round) AllDeclared() bool {
	return len(r.Declarations) == SeatCount
}

// Play records a legal play from position into the current turn. The first
// play of a turn fixes RequiredPieceCount for the remaining followers.
func (r *Round) Play(position int, play piece.Play) {
	if r.RequiredPieceCount == nil {
		n := len(play.Pieces)
		r.RequiredPieceCount = &n
		r.CurrentLeader = position
	}
	r.CurrentPlays[position] = play
	if play.Type == piece.Pass {
		r.Passed[position] = true
	}
}

// TurnComplete reports whether every seat has acted this turn: either all
// four positions have played, or every non-leader has passed.
func (r *Round) TurnComplete(order []int) bool {
	if len(r.CurrentPlays) == SeatCount {
		return true
	}
	for _, pos := range order {
		if pos == r.CurrentLeader {
			continue
		}
		if !r.Passed[pos] {
			return false
		}
	}
	return len(r.CurrentPlays) > 0
}

// ResolveTurn finalizes the current turn: determines the winner via the
// rules engine, records a PileRecord, advances TurnNumber, and resets the
// per-turn state so the winner leads next. Winning seats accumulate
// CapturedPiles via the caller, since piece removal from hands happens at
// the play site, not here.
func (r *Round) ResolveTurn(order []int) PileRecord {
	winner, pileSize := rules.ResolveTurn(r.CurrentPlays, order, r.CurrentLeader)

	record := PileRecord{TurnNumber: r.TurnNumber, Winner: winner, PileSize: pileSize}
	r.PileHistory = append(r.PileHistory, record)

	r.TurnNumber++
	r.CurrentLeader = winner
	r.RequiredPieceCount = nil
	r.CurrentPlays = map[int]piece.Play{}
	r.Passed = map[int]bool{}

	return record
}

// AllHandsEmpty reports whether every seat has played out its hand.
func AllHandsEmpty(seats [SeatCount]*Seat) bool {
	for _, s := range seats {
		if len(s.Hand) > 0 {
			return false
		}
	}
	return true
}

// CapturedPilesByPosition totals how many piles each position won across
// PileHistory, for scoring at round end.
func (r *Round) CapturedPilesByPosition() map[int]int {
	captured := map[int]int{}
	for _, rec := range r.PileHistory {
		captured[rec.Winner]++
	}
	return captured
}

// Score computes the point delta for every declared position using the
// rules engine, and returns it for the caller to apply to seat scores.
func (r *Round) Score() map[int]int {
	declared := map[int]int{}
	for pos, v := range r.Declarations {
		declared[pos] = *v
	}
	return rules.ScoreRound(declared, r.CapturedPilesByPosition(), r.Multiplier)
}
