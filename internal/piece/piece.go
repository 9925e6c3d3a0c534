// Package piece defines the static piece vocabulary of a Liap Tui deal: the
// seven ranks and two colors carried over from xiangqi, and the point value
// each individual piece contributes toward a round's score.
package piece

import (
	"encoding/json"
	"fmt"
)

// Rank is one of the seven xiangqi piece ranks, ordered weakest to strongest.
type Rank int

const (
	Soldier Rank = iota
	Cannon
	Horse
	Chariot
	Elephant
	Advisor
	General
)

func (r Rank) String() string {
	switch r {
	case General:
		return "GENERAL"
	case Advisor:
		return "ADVISOR"
	case Elephant:
		return "ELEPHANT"
	case Chariot:
		return "CHARIOT"
	case Horse:
		return "HORSE"
	case Cannon:
		return "CANNON"
	case Soldier:
		return "SOLDIER"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON emits the rank as its string name rather than its ordinal, so
// broadcast frames carry "GENERAL" instead of 6.
func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts a rank's string name.
func (r *Rank) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, candidate := range []Rank{General, Advisor, Elephant, Chariot, Horse, Cannon, Soldier} {
		if candidate.String() == name {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("piece: invalid rank %q", name)
}

// Color distinguishes the two sides of the piece set.
type Color int

const (
	Red Color = iota
	Black
)

func (c Color) String() string {
	if c == Red {
		return "RED"
	}
	return "BLACK"
}

// MarshalJSON emits the color as its string name.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a color's string name.
func (c *Color) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "RED":
		*c = Red
	case "BLACK":
		*c = Black
	default:
		return fmt.Errorf("piece: invalid color %q", name)
	}
	return nil
}

// Piece is one physical tile: a rank, a color, and the point value it
// contributes to round scoring. Soldier point values differ copy to copy;
// every other rank carries a single fixed point value for both of its
// copies.
type Piece struct {
	ID    string `json:"id"`
	Rank  Rank   `json:"rank"`
	Color Color  `json:"color"`
	Point int    `json:"point"`
}

func (p Piece) String() string {
	return fmt.Sprintf("%s-%s-%d", p.Color, p.Rank, p.Point)
}

// weakHandThreshold is the point value above which a piece counts toward
// "has a strong piece" for the weak-hand redeal check (spec §4.3): a hand is
// weak only if every piece in it has Point <= weakHandThreshold.
const weakHandThreshold = 9

// IsStrong reports whether this piece alone disqualifies a hand from being
// weak.
func (p Piece) IsStrong() bool {
	return p.Point > weakHandThreshold
}

// basePoint is the fixed point value for every non-Soldier rank. Soldier
// copies get their point assigned individually in deck.go.
func basePoint(r Rank) int {
	switch r {
	case General:
		return 14
	case Advisor:
		return 13
	case Elephant:
		return 12
	case Chariot:
		return 11
	case Horse:
		return 10
	case Cannon:
		return 9
	default:
		return 0
	}
}
