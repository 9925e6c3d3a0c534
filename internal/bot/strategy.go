package bot

import (
	"sort"

	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/rules"
)

// Strategy is the bot's decision policy, one call per decision point. It is
// pure: given the relevant slice of hand/round state it returns a decision,
// never touching a GameSession directly, so it can be swapped or unit
// tested without a running room.
type Strategy interface {
	AcceptRedeal(hand []piece.Piece) bool
	Declare(hand []piece.Piece, priorDeclared []int, isLastDeclarer bool) int
	PlayLeader(hand []piece.Piece, declared, captured int) []piece.Piece
	PlayFollower(hand []piece.Piece, declared, captured int, requiredCount int, leaderPlay piece.Play) []piece.Piece
}

// redealThreshold is T_redeal (spec.md §4.9): a weak hand is accepted for
// redeal only when its total point value falls below this, i.e. the hand is
// not just technically weak (no piece above 9) but weak in aggregate too.
const redealThreshold = 24

// defaultStrategy is grounded on the teacher's pkg/poker/table.go
// HandleTimeouts auto-action heuristic (a small set of concrete rules over
// the currently legal options, not a search), generalized from "check or
// fold" to this game's redeal/declare/play decision points.
type defaultStrategy struct{}

// NewDefaultStrategy returns the bundled heuristic policy.
func NewDefaultStrategy() Strategy { return defaultStrategy{} }

func handValue(hand []piece.Piece) int {
	total := 0
	for _, p := range hand {
		total += p.Point
	}
	return total
}

func (defaultStrategy) AcceptRedeal(hand []piece.Piece) bool {
	return handValue(hand) < redealThreshold
}

// estimateCaptures approximates expected pile captures as the count of
// individually strong pieces in hand (point > 9), capped to a legal
// declaration value — a bounded stand-in for a full opponent model.
func estimateCaptures(hand []piece.Piece) int {
	n := 0
	for _, p := range hand {
		if p.IsStrong() {
			n++
		}
	}
	if n > 8 {
		n = 8
	}
	return n
}

func (defaultStrategy) Declare(hand []piece.Piece, priorDeclared []int, isLastDeclarer bool) int {
	estimate := estimateCaptures(hand)
	if !isLastDeclarer {
		return estimate
	}
	sum := estimate
	for _, v := range priorDeclared {
		sum += v
	}
	if sum != 8 {
		return estimate
	}
	if estimate < 8 {
		return estimate + 1
	}
	return estimate - 1
}

// legalGroups enumerates every piece subset of hand that classifies as a
// valid (non-Invalid, non-Pass) Play of exactly size count: same-rank combos
// (covers SINGLE/PAIR/TRIPLE/QUAD/FIVE_OF_A_KIND/MIXED) plus straights.
// Hands are at most 8 pieces, so exhaustive combination enumeration is cheap.
func legalGroups(hand []piece.Piece, count int) []piece.Play {
	var out []piece.Play
	seen := map[string]bool{}

	for _, combo := range combinations(hand, count) {
		play := piece.Classify(combo)
		if play.Type == piece.Invalid || play.Type == piece.Pass {
			continue
		}
		key := groupKey(combo)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, play)
	}
	return out
}

func groupKey(pieces []piece.Piece) string {
	ids := make([]string, len(pieces))
	for i, p := range pieces {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	key := ""
	for _, id := range ids {
		key += id + ","
	}
	return key
}

// combinations returns every k-subset of items, order-independent.
func combinations(items []piece.Piece, k int) [][]piece.Piece {
	var out [][]piece.Piece
	if k <= 0 || k > len(items) {
		return out
	}
	var pick func(start int, chosen []piece.Piece)
	pick = func(start int, chosen []piece.Piece) {
		if len(chosen) == k {
			cp := make([]piece.Piece, k)
			copy(cp, chosen)
			out = append(out, cp)
			return
		}
		for i := start; i < len(items); i++ {
			pick(i+1, append(chosen, items[i]))
		}
	}
	pick(0, nil)
	return out
}

// bestSingle returns the strongest or weakest single piece in hand.
func bestSingle(hand []piece.Piece, strongest bool) piece.Piece {
	best := hand[0]
	for _, p := range hand[1:] {
		if strongest && p.Point > best.Point {
			best = p
		}
		if !strongest && p.Point < best.Point {
			best = p
		}
	}
	return best
}

// PlayLeader picks a single piece: the strongest held piece when this seat
// still needs captures to meet its declaration, the weakest otherwise (an
// easy-to-beat lead lets another seat take the pile, avoiding overcapture).
// A full search over every count/grouping is left as future work; singles
// are always legal for a leader and cover the common case.
func (defaultStrategy) PlayLeader(hand []piece.Piece, declared, captured int) []piece.Piece {
	wantsMore := captured < declared
	return []piece.Piece{bestSingle(hand, wantsMore)}
}

// PlayFollower finds a matching-count play that beats the leader's play
// when this seat wants to capture, and otherwise the weakest legal matching
// play so its pieces leave its hand at minimum cost. Returns nil (an
// explicit pass) when no matching-count group exists in hand.
func (defaultStrategy) PlayFollower(hand []piece.Piece, declared, captured int, requiredCount int, leaderPlay piece.Play) []piece.Piece {
	groups := legalGroups(hand, requiredCount)
	if len(groups) == 0 {
		return nil
	}

	wantsMore := captured < declared
	var winning []piece.Play
	for _, g := range groups {
		if rules.Compare(g, leaderPlay) == rules.WinnerA {
			winning = append(winning, g)
		}
	}

	if wantsMore && len(winning) > 0 {
		return weakestPlay(winning).Pieces
	}
	return weakestPlay(groups).Pieces
}

func weakestPlay(plays []piece.Play) piece.Play {
	best := plays[0]
	for _, p := range plays[1:] {
		if p.Strength < best.Strength {
			best = p
		}
	}
	return best
}
