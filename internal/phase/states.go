package phase

import (
	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/rules"
	"github.com/liaptui/server/internal/wire"
)

// SeatView is the publicly broadcastable projection of a Seat: everything
// but the hand's actual contents, which only reach their owner via the
// private hand_updated frame.
type SeatView struct {
	Position      int    `json:"position"`
	Name          string `json:"name"`
	IsBot         bool   `json:"isBot"`
	IsOriginalBot bool   `json:"isOriginalBot"`
	Score         int    `json:"score"`
	HandCount     int    `json:"handCount"`
	Declared      *int   `json:"declared"`
	CapturedPiles int    `json:"capturedPiles"`
}

func seatViews(gs *GameSession) []SeatView {
	views := make([]SeatView, round.SeatCount)
	for i, s := range gs.Seats {
		views[i] = SeatView{
			Position:      s.Position,
			Name:          s.Name,
			IsBot:         s.IsBot,
			IsOriginalBot: s.IsOriginalBot,
			Score:         s.Score,
			HandCount:     len(s.Hand),
			Declared:      s.Declared,
			CapturedPiles: s.CapturedPiles,
		}
	}
	return views
}

// PhaseData is the payload carried by every phase_change frame. Fields
// irrelevant to the current phase are left at their zero value.
type PhaseData struct {
	Seats []SeatView `json:"seats"`

	WeakHands       []int        `json:"weakHands,omitempty"`
	RedealDecisions map[int]bool `json:"redealDecisions,omitempty"`

	DeclarationOrder []int `json:"declarationOrder,omitempty"`
	NextDeclarer     *int  `json:"nextDeclarer,omitempty"`

	TurnNumber         int                `json:"turnNumber,omitempty"`
	CurrentLeader      int                `json:"currentLeader,omitempty"`
	RequiredPieceCount *int               `json:"requiredPieceCount,omitempty"`
	CurrentPlays       map[int]piece.Play `json:"currentPlays,omitempty"`

	LastPileWinner *int `json:"lastPileWinner,omitempty"`
	LastPileSize   int  `json:"lastPileSize,omitempty"`

	Scores map[int]int `json:"scores,omitempty"`
	Winner *int         `json:"winner,omitempty"`
}

func basePhaseData(gs *GameSession) PhaseData {
	return PhaseData{Seats: seatViews(gs)}
}

func notYourTurn() ActionResult {
	return fail(wire.NewError(wire.ErrNotYourTurn, "it is not your turn", nil))
}

// --- WAITING -----------------------------------------------------------

type waitingState struct{}

func (waitingState) Name() Name { return Waiting }

func (waitingState) OnEnter(gs *GameSession) {
	gs.PhaseData = basePhaseData(gs)
}

func (waitingState) OnExit(gs *GameSession) {}

func (waitingState) Accepts(kind string) bool { return kind == wire.EventStartGame }

func (waitingState) HandleAction(gs *GameSession, a Action) ActionResult {
	if a.Position != gs.Host {
		return fail(wire.NewError(wire.ErrOutOfPhase, "only the host may start the game", nil))
	}
	for _, s := range gs.Seats {
		if s.Name == "" {
			return fail(wire.NewError(wire.ErrGameNotStarted, "all four seats must be occupied", nil))
		}
	}
	gs.RoundNumber = 1
	gs.Multiplier = 1
	gs.RedealCount = 0
	gs.UpdatePhaseData("start_game", a, func() {
		gs.transitionTo(&preparationState{})
	})
	return ok()
}

// --- PREPARATION ---------------------------------------------------------

type preparationState struct{}

func (preparationState) Name() Name { return Preparation }

func (preparationState) OnEnter(gs *GameSession) {
	starter := gs.Starter
	r, err := round.NewRound(gs.RoundNumber, gs.Multiplier, gs.Seats, gs.currentSeed(), starter)
	if err != nil {
		gs.log.Errorf("preparation: deal failed: %v", err)
		return
	}
	gs.Current = r
	gs.WeakHands = round.WeakHandPositions(gs.Seats)
	gs.RedealDecisions = map[int]bool{}

	data := basePhaseData(gs)
	data.WeakHands = gs.WeakHands
	data.RedealDecisions = gs.RedealDecisions
	gs.PhaseData = data

	for _, s := range gs.Seats {
		gs.PublishHand(s.Position, s.Hand, len(s.Hand))
	}

	if len(gs.WeakHands) == 0 {
		gs.transitionTo(&declarationState{})
	}
}

func (preparationState) OnExit(gs *GameSession) {}

func (preparationState) Accepts(kind string) bool {
	return kind == wire.EventAcceptRedeal || kind == wire.EventDeclineRedeal
}

func (s preparationState) HandleAction(gs *GameSession, a Action) ActionResult {
	isWeak := false
	for _, p := range gs.WeakHands {
		if p == a.Position {
			isWeak = true
			break
		}
	}
	if !isWeak {
		return fail(wire.NewError(wire.ErrOutOfPhase, "only a weak-hand seat may respond to redeal", nil))
	}
	if _, decided := gs.RedealDecisions[a.Position]; decided {
		return fail(wire.NewError(wire.ErrOutOfPhase, "redeal decision already recorded", nil))
	}

	accept := a.Kind == wire.EventAcceptRedeal
	gs.UpdatePhaseData("redeal_decision", a, func() {
		gs.RedealDecisions[a.Position] = accept
		data := gs.PhaseData.(PhaseData)
		data.RedealDecisions = gs.RedealDecisions
		gs.PhaseData = data

		if len(gs.RedealDecisions) < len(gs.WeakHands) {
			return
		}

		anyAccepted := false
		for _, v := range gs.RedealDecisions {
			if v {
				anyAccepted = true
				break
			}
		}
		if anyAccepted {
			gs.RedealCount++
			gs.Multiplier *= 2
			gs.transitionTo(&preparationState{})
		} else {
			gs.transitionTo(&declarationState{})
		}
	})
	return ok()
}

// --- DECLARATION ---------------------------------------------------------

type declarationState struct{}

func (declarationState) Name() Name { return Declaration }

func (declarationState) OnEnter(gs *GameSession) {
	order := OrderFrom(gs.Current.CurrentLeader)
	next := order[0]
	data := basePhaseData(gs)
	data.DeclarationOrder = order
	data.NextDeclarer = &next
	gs.PhaseData = data
}

func (declarationState) OnExit(gs *GameSession) {}

func (declarationState) Accepts(kind string) bool { return kind == wire.EventDeclare }

func (declarationState) HandleAction(gs *GameSession, a Action) ActionResult {
	order := OrderFrom(gs.Current.CurrentLeader)
	expected := order[len(gs.Current.Declarations)]
	if a.Position != expected {
		return notYourTurn()
	}

	if err := gs.Current.ValidateDeclare(a.Position, a.Value); err != nil {
		return fail(wire.NewError(wire.ErrInvalidDeclaration, err.Error(), nil))
	}

	gs.UpdatePhaseData("declare", a, func() {
		gs.Current.CommitDeclare(a.Position, a.Value)
		gs.Seats[a.Position].Declared = gs.Current.Declarations[a.Position]

		data := gs.PhaseData.(PhaseData)
		data.Seats = seatViews(gs)
		if gs.Current.AllDeclared() {
			data.NextDeclarer = nil
			gs.PhaseData = data
			gs.transitionTo(&turnState{})
			return
		}
		next := order[len(gs.Current.Declarations)]
		data.NextDeclarer = &next
		gs.PhaseData = data
	})
	return ok()
}

// --- TURN ------------------------------------------------------------------

type turnState struct{}

func (turnState) Name() Name { return Turn }

func (turnState) OnEnter(gs *GameSession) {
	data := basePhaseData(gs)
	data.TurnNumber = gs.Current.TurnNumber
	data.CurrentLeader = gs.Current.CurrentLeader
	data.RequiredPieceCount = gs.Current.RequiredPieceCount
	data.CurrentPlays = gs.Current.CurrentPlays
	gs.PhaseData = data
}

func (turnState) OnExit(gs *GameSession) {}

func (turnState) Accepts(kind string) bool { return kind == wire.EventPlay }

func (turnState) HandleAction(gs *GameSession, a Action) ActionResult {
	order := OrderFrom(gs.Current.CurrentLeader)
	if _, already := gs.Current.CurrentPlays[a.Position]; already {
		return fail(wire.NewError(wire.ErrOutOfPhase, "already played this turn", nil))
	}
	if a.Position != NextToAct(gs.Current, order) {
		return notYourTurn()
	}

	seat := gs.Seats[a.Position]

	pieces, err := resolvePieceIDs(seat, a.PieceIDs)
	if err != nil {
		return fail(wire.NewError(wire.ErrPiecesNotInHand, err.Error(), nil))
	}

	valid, reason, play := rules.IsValidPlay(pieces, gs.Current.RequiredPieceCount)
	if !valid {
		return fail(wire.NewError(wire.ErrInvalidPlay, reason, nil))
	}

	gs.UpdatePhaseData("play", a, func() {
		seat.Hand = removePieces(seat.Hand, pieces)
		gs.Current.Play(a.Position, play)

		data := gs.PhaseData.(PhaseData)
		data.Seats = seatViews(gs)
		data.CurrentLeader = gs.Current.CurrentLeader
		data.RequiredPieceCount = gs.Current.RequiredPieceCount
		data.CurrentPlays = gs.Current.CurrentPlays
		gs.PhaseData = data

		gs.PublishHand(a.Position, seat.Hand, len(seat.Hand))

		if gs.Current.TurnComplete(OrderFrom(gs.Current.CurrentLeader)) {
			gs.transitionTo(&turnResultsState{})
		}
	})
	return ok()
}

// NextToAct returns the first position in turn order that hasn't played or
// passed yet this turn.
func NextToAct(r *round.Round, order []int) int {
	for _, pos := range order {
		if _, played := r.CurrentPlays[pos]; !played {
			return pos
		}
	}
	return order[0]
}

func resolvePieceIDs(seat *round.Seat, ids []string) ([]piece.Piece, error) {
	var out []piece.Piece
	for _, id := range ids {
		found := false
		for _, p := range seat.Hand {
			if p.ID == id {
				out = append(out, p)
				found = true
				break
			}
		}
		if !found {
			return nil, errPieceNotInHand(id)
		}
	}
	return out, nil
}

type errPieceNotInHand string

func (e errPieceNotInHand) Error() string { return "piece not in hand: " + string(e) }

func removePieces(hand []piece.Piece, played []piece.Piece) []piece.Piece {
	playedIDs := make(map[string]bool, len(played))
	for _, p := range played {
		playedIDs[p.ID] = true
	}
	out := make([]piece.Piece, 0, len(hand)-len(played))
	for _, p := range hand {
		if !playedIDs[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// --- TURN_RESULTS ------------------------------------------------------

type turnResultsState struct{}

func (turnResultsState) Name() Name { return TurnResults }

func (turnResultsState) OnEnter(gs *GameSession) {
	order := OrderFrom(gs.Current.CurrentLeader)
	record := gs.Current.ResolveTurn(order)
	gs.Seats[record.Winner].CapturedPiles++

	data := basePhaseData(gs)
	winner := record.Winner
	data.LastPileWinner = &winner
	data.LastPileSize = record.PileSize
	gs.PhaseData = data

	if round.AllHandsEmpty(gs.Seats) {
		gs.transitionTo(&scoringState{})
	} else {
		gs.transitionTo(&turnState{})
	}
}

func (turnResultsState) OnExit(gs *GameSession) {}

func (turnResultsState) Accepts(kind string) bool { return false }

func (turnResultsState) HandleAction(gs *GameSession, a Action) ActionResult {
	return fail(wire.NewError(wire.ErrOutOfPhase, "TURN_RESULTS accepts no player actions", nil))
}

// --- SCORING ---------------------------------------------------------------

type scoringState struct{}

func (scoringState) Name() Name { return Scoring }

func (scoringState) OnEnter(gs *GameSession) {
	deltas := gs.Current.Score()
	for pos, delta := range deltas {
		gs.Seats[pos].Score += delta
	}

	data := basePhaseData(gs)
	data.Scores = deltas
	gs.PhaseData = data

	winner := -1
	for _, s := range gs.Seats {
		if s.Score >= gs.WinningScore {
			winner = s.Position
			break
		}
	}
	if winner >= 0 || gs.RoundNumber >= gs.MaxRounds {
		gs.transitionTo(&gameOverState{winner: winner})
		return
	}

	gs.Starter = winnerOfLastPile(gs)
	gs.RoundNumber++
	gs.RedealCount = 0
	gs.Multiplier = 1
	gs.transitionTo(&preparationState{})
}

func winnerOfLastPile(gs *GameSession) int {
	if gs.Current == nil || len(gs.Current.PileHistory) == 0 {
		return gs.Starter
	}
	return gs.Current.PileHistory[len(gs.Current.PileHistory)-1].Winner
}

func (scoringState) OnExit(gs *GameSession) {}

func (scoringState) Accepts(kind string) bool { return false }

func (scoringState) HandleAction(gs *GameSession, a Action) ActionResult {
	return fail(wire.NewError(wire.ErrOutOfPhase, "SCORING accepts no player actions", nil))
}

// --- GAME_OVER ---------------------------------------------------------

type gameOverState struct {
	winner int
}

func (gameOverState) Name() Name { return GameOver }

func (s *gameOverState) OnEnter(gs *GameSession) {
	data := basePhaseData(gs)
	if s.winner >= 0 {
		w := s.winner
		data.Winner = &w
	}
	gs.PhaseData = data
}

func (*gameOverState) OnExit(gs *GameSession) {}

func (*gameOverState) Accepts(kind string) bool { return false }

func (*gameOverState) HandleAction(gs *GameSession, a Action) ActionResult {
	return fail(wire.NewError(wire.ErrOutOfPhase, "game has ended", nil))
}
