package piece

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type is the shape a group of played pieces takes, in ascending strength
// order within a fixed piece count (see rules.CompareMatrix for how types of
// differing count never compare directly).
type Type int

const (
	Invalid Type = iota
	Pass
	Single
	PairType
	TripleType
	QuadType
	FiveOfAKind
	StraightType
	Mixed
)

func (t Type) String() string {
	switch t {
	case Pass:
		return "PASS"
	case Single:
		return "SINGLE"
	case PairType:
		return "PAIR"
	case TripleType:
		return "TRIPLE"
	case QuadType:
		return "QUAD"
	case FiveOfAKind:
		return "FIVE_OF_A_KIND"
	case StraightType:
		return "STRAIGHT"
	case Mixed:
		return "MIXED"
	default:
		return "INVALID"
	}
}

// MarshalJSON emits the type as its string name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a type's string name.
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, candidate := range []Type{Invalid, Pass, Single, PairType, TripleType, QuadType, FiveOfAKind, StraightType, Mixed} {
		if candidate.String() == name {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("piece: invalid play type %q", name)
}

// straightRanks excludes Soldier: soldiers carry individually varying point
// values rather than occupying a place in the rank ladder, so they cannot
// extend a straight.
var straightRanks = []Rank{Cannon, Horse, Chariot, Elephant, Advisor, General}

// Play is one player's classified contribution to a trick: the pieces they
// put down and the shape those pieces form. An empty Play with Type Pass
// represents a player declining to beat the current lead.
type Play struct {
	Pieces   []Piece `json:"pieces"`
	Type     Type    `json:"type"`
	Strength int     `json:"strength"`
}

// Classify inspects an unordered group of pieces and determines the single
// Type they form, or Invalid if they form none. A nil/empty slice classifies
// as Pass.
func Classify(pieces []Piece) Play {
	if len(pieces) == 0 {
		return Play{Type: Pass}
	}

	sorted := make([]Piece, len(pieces))
	copy(sorted, pieces)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Point < sorted[j].Point })

	if len(sorted) == 1 {
		return Play{Pieces: sorted, Type: Single, Strength: sorted[0].Point}
	}

	if allSameRank(sorted) {
		if t, ok := sameRankType(sorted); ok {
			return Play{Pieces: sorted, Type: t, Strength: sorted[0].Point}
		}
		return Play{Pieces: sorted, Type: Invalid}
	}

	if isStraight(sorted) {
		return Play{Pieces: sorted, Type: StraightType, Strength: sorted[len(sorted)-1].Point}
	}

	return Play{Pieces: sorted, Type: Invalid}
}

// sameRankType classifies a same-rank group by size and color uniformity.
// A uniform color of size 2/3/4 is a pure PAIR/TRIPLE/QUAD; a uniform color
// group of all five Soldier copies is FIVE_OF_A_KIND; a same-rank group of
// size 2-4 that mixes colors falls back to MIXED, while a mixed-color group
// of five Soldiers is Invalid.
func sameRankType(sorted []Piece) (Type, bool) {
	n := len(sorted)
	if n < 2 || n > 5 {
		return Invalid, false
	}
	if n == 5 && sorted[0].Rank != Soldier {
		return Invalid, false
	}

	if sameColor(sorted) {
		switch n {
		case 2:
			return PairType, true
		case 3:
			return TripleType, true
		case 4:
			return QuadType, true
		case 5:
			return FiveOfAKind, true
		}
	}

	// Mixed color: only same-rank PAIR/TRIPLE/QUAD shapes degrade to MIXED.
	// A quintet of non-soldiers was already rejected above; a mixed-color
	// soldier quintet does reach this point and is Invalid.
	if n >= 2 && n <= 4 {
		return Mixed, true
	}
	return Invalid, false
}

func allSameRank(sorted []Piece) bool {
	r := sorted[0].Rank
	for _, p := range sorted {
		if p.Rank != r {
			return false
		}
	}
	return true
}

func sameColor(sorted []Piece) bool {
	c := sorted[0].Color
	for _, p := range sorted {
		if p.Color != c {
			return false
		}
	}
	return true
}

// isStraight reports whether sorted is 3-6 single pieces of distinct,
// consecutive, non-Soldier ranks, all the same color.
func isStraight(sorted []Piece) bool {
	n := len(sorted)
	if n < 3 || n > len(straightRanks) {
		return false
	}
	if !sameColor(sorted) {
		return false
	}

	byRank := make([]Piece, len(sorted))
	copy(byRank, sorted)
	sort.Slice(byRank, func(i, j int) bool { return byRank[i].Rank < byRank[j].Rank })

	for _, p := range byRank {
		if p.Rank == Soldier {
			return false
		}
	}
	for i := 1; i < n; i++ {
		if byRank[i].Rank != byRank[i-1].Rank+1 {
			return false
		}
	}
	return true
}
