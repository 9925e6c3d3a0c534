package piece

import (
	"fmt"
	"math/rand"
)

// soldierPoints gives the five Soldier copies per color their declining
// point values. Combined with CANNON's fixed base point of 9, this is what
// makes the weak-hand threshold meaningful: a hand is weak exactly when it
// holds nothing stronger than a Cannon.
var soldierPoints = [5]int{5, 4, 3, 2, 1}

// multiplicity lists how many copies of each rank exist per color. General
// is singular; every other non-Soldier rank pairs; Soldier has five
// distinct-valued copies.
var multiplicity = map[Rank]int{
	General:  1,
	Advisor:  2,
	Elephant: 2,
	Chariot:  2,
	Horse:    2,
	Cannon:   2,
	Soldier:  5,
}

// orderedRanks fixes iteration order so deck construction is reproducible
// independent of Go's map iteration order.
var orderedRanks = []Rank{General, Advisor, Elephant, Chariot, Horse, Cannon, Soldier}

// NewDeck builds the full 32-piece set (16 per color) and shuffles it with a
// deterministic RNG seeded from seed. Equal seeds always yield equal deck
// orderings, which is what lets spec scenarios pin a seed and assert the
// exact resulting deal.
func NewDeck(seed int64) []Piece {
	pieces := make([]Piece, 0, 32)
	for _, color := range []Color{Red, Black} {
		for _, rank := range orderedRanks {
			count := multiplicity[rank]
			for i := 0; i < count; i++ {
				point := basePoint(rank)
				if rank == Soldier {
					point = soldierPoints[i]
				}
				pieces = append(pieces, Piece{
					ID:    fmt.Sprintf("%s-%s-%d", color, rank, i),
					Rank:  rank,
					Color: color,
					Point: point,
				})
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pieces), func(i, j int) {
		pieces[i], pieces[j] = pieces[j], pieces[i]
	})
	return pieces
}

// Deal splits a shuffled deck into handCount equal hands of handSize pieces
// each, taken in deck order. It does not mutate deck.
func Deal(deck []Piece, handCount, handSize int) ([][]Piece, error) {
	if len(deck) != handCount*handSize {
		return nil, fmt.Errorf("piece: deck has %d pieces, want %d for %d hands of %d", len(deck), handCount*handSize, handCount, handSize)
	}
	hands := make([][]Piece, handCount)
	for i := 0; i < handCount; i++ {
		hand := make([]Piece, handSize)
		copy(hand, deck[i*handSize:(i+1)*handSize])
		hands[i] = hand
	}
	return hands, nil
}

// IsWeakHand reports whether every piece in hand is at or below the
// weak-hand threshold, making the holder eligible to request a redeal.
func IsWeakHand(hand []Piece) bool {
	for _, p := range hand {
		if p.IsStrong() {
			return false
		}
	}
	return true
}
