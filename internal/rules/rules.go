// Package rules implements the Liap Tui rules engine (C2): play validation,
// play-to-play comparison, turn resolution, and round scoring. It is pure
// and stateless — every function takes its inputs explicitly and returns a
// result, with no dependency on round or phase state.
package rules

import (
	"fmt"

	"github.com/liaptui/server/internal/piece"
)

// Winner names which side of a comparison prevails.
type Winner int

const (
	WinnerTie Winner = iota
	WinnerA
	WinnerB
)

// typeRank orders the *pure* play types by strength within a shared piece
// count, per CompareMatrix. Mixed is deliberately absent: it is handled as a
// standing special case below rather than folded into this ladder.
//
// CompareMatrix: SINGLE < PAIR < TRIPLE < QUAD < FIVE_OF_A_KIND < STRAIGHT
// is the type precedence used only when more than one pure type can occupy
// the same required count (e.g. a 3-piece STRAIGHT outranks a 3-piece
// TRIPLE). MIXED never participates in this ladder: it always loses to a
// pure type of the same count, and it loses strength ties against another
// MIXED play to whichever was played first (see ResolveTurn).
var typeRank = map[piece.Type]int{
	piece.Single:       1,
	piece.PairType:     2,
	piece.TripleType:   3,
	piece.QuadType:     4,
	piece.FiveOfAKind:  5,
	piece.StraightType: 6,
}

// IsValidPlay validates a candidate set of pieces against the turn's
// required piece count. requiredCount is nil only for the leader's first
// play of a turn, who may choose any count from 1 to 6; every other play in
// the turn must either match requiredCount exactly or be an explicit pass
// (len(pieces) == 0).
func IsValidPlay(pieces []piece.Piece, requiredCount *int) (bool, string, piece.Play) {
	if len(pieces) == 0 {
		if requiredCount != nil {
			return true, "", piece.Play{Type: piece.Pass}
		}
		return false, "pass is only allowed when following, not leading", piece.Play{}
	}

	if requiredCount != nil && *requiredCount != 0 && len(pieces) != *requiredCount {
		return false, fmt.Sprintf("expected %d pieces, got %d", *requiredCount, len(pieces)), piece.Play{}
	}

	if requiredCount == nil && (len(pieces) < 1 || len(pieces) > 6) {
		return false, "leading play must be 1 to 6 pieces", piece.Play{}
	}

	play := piece.Classify(pieces)
	if play.Type == piece.Invalid {
		return false, "pieces do not form a valid combination", piece.Play{}
	}
	return true, "", play
}

// Compare determines the winner between two plays of the same piece count.
// Within the same pure type, the higher strength tuple wins. Across
// different pure types of the same count, typeRank decides. MIXED never
// beats a pure type of the same count; two MIXED plays compare by strength
// and tie if equal.
func Compare(a, b piece.Play) Winner {
	if a.Type == piece.Pass && b.Type == piece.Pass {
		return WinnerTie
	}
	if a.Type == piece.Pass {
		return WinnerB
	}
	if b.Type == piece.Pass {
		return WinnerA
	}

	if a.Type == piece.Mixed && b.Type != piece.Mixed {
		return WinnerB
	}
	if b.Type == piece.Mixed && a.Type != piece.Mixed {
		return WinnerA
	}

	if a.Type == b.Type {
		return compareStrength(a.Strength, b.Strength)
	}

	// Different pure types sharing a count: fall back to the type ladder.
	ra, oka := typeRank[a.Type]
	rb, okb := typeRank[b.Type]
	if oka && okb {
		if ra == rb {
			return WinnerTie
		}
		if ra > rb {
			return WinnerA
		}
		return WinnerB
	}
	return WinnerTie
}

func compareStrength(a, b int) Winner {
	switch {
	case a > b:
		return WinnerA
	case b > a:
		return WinnerB
	default:
		return WinnerTie
	}
}

// ResolveTurn determines the pile winner among a turn's plays. Only plays
// whose classified type and piece count match the leader's opening play are
// contenders; everything else (explicit passes, and plays that don't match
// the leader's shape) is excluded from contention, though its pieces still
// leave the player's hand. Ties on strength are resolved in favor of
// whichever contender played first in turn order, reflected here by
// orderedPositions preserving play order and only replacing the current
// leader on a strict win.
func ResolveTurn(plays map[int]piece.Play, orderedPositions []int, leaderPosition int) (winner int, pileSize int) {
	leadPlay, ok := plays[leaderPosition]
	if !ok || leadPlay.Type == piece.Pass {
		return leaderPosition, 0
	}

	winner = leaderPosition
	best := leadPlay
	pileSize = len(leadPlay.Pieces)

	for _, pos := range orderedPositions {
		if pos == leaderPosition {
			continue
		}
		play, ok := plays[pos]
		if !ok {
			continue
		}
		pileSize += len(play.Pieces)

		if play.Type == piece.Pass {
			continue
		}
		if play.Type != leadPlay.Type || len(play.Pieces) != len(leadPlay.Pieces) {
			continue
		}
		if Compare(play, best) == WinnerA {
			best = play
			winner = pos
		}
	}
	return winner, pileSize
}

const (
	basePoints  = 10
	bonusPoints = 5
)

// ScoreRound computes each position's point delta for a finished round. A
// seat that captured exactly as many piles as it declared earns
// basePoints+bonusPoints; any other seat loses points proportional to how
// far off its capture count was from its declaration. Every delta is then
// scaled by the round's multiplier (doubled once per accepted redeal).
func ScoreRound(declared map[int]int, captured map[int]int, multiplier int) map[int]int {
	deltas := make(map[int]int, len(declared))
	for pos, decl := range declared {
		actual := captured[pos]
		var points int
		if actual == decl {
			points = basePoints + bonusPoints
		} else {
			diff := actual - decl
			if diff < 0 {
				diff = -diff
			}
			points = -diff
		}
		deltas[pos] = points * multiplier
	}
	return deltas
}
