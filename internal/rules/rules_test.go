package rules

import (
	"testing"

	"github.com/liaptui/server/internal/piece"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPlayLeaderChoosesCount(t *testing.T) {
	pieces := []piece.Piece{{Rank: piece.General, Color: piece.Red, Point: 14}}
	valid, reason, play := IsValidPlay(pieces, nil)
	require.True(t, valid, reason)
	assert.Equal(t, piece.Single, play.Type)
}

func TestIsValidPlayFollowerMustMatchCount(t *testing.T) {
	required := 2
	pieces := []piece.Piece{{Rank: piece.General, Color: piece.Red, Point: 14}}
	valid, _, _ := IsValidPlay(pieces, &required)
	assert.False(t, valid)
}

func TestIsValidPlayFollowerMayPass(t *testing.T) {
	required := 3
	valid, _, play := IsValidPlay(nil, &required)
	require.True(t, valid)
	assert.Equal(t, piece.Pass, play.Type)
}

func TestIsValidPlayLeaderCannotPass(t *testing.T) {
	valid, _, _ := IsValidPlay(nil, nil)
	assert.False(t, valid)
}

func TestCompareHigherStrengthWinsWithinType(t *testing.T) {
	a := piece.Classify([]piece.Piece{{Rank: piece.General, Color: piece.Red, Point: 14}})
	b := piece.Classify([]piece.Piece{{Rank: piece.Cannon, Color: piece.Red, Point: 9}})
	assert.Equal(t, WinnerA, Compare(a, b))
}

func TestCompareMixedLosesToPureTypeSameCount(t *testing.T) {
	mixed := piece.Classify([]piece.Piece{
		{Rank: piece.Advisor, Color: piece.Red, Point: 13},
		{Rank: piece.Advisor, Color: piece.Black, Point: 13},
	})
	pure := piece.Classify([]piece.Piece{
		{Rank: piece.Soldier, Color: piece.Red, Point: 1},
		{Rank: piece.Soldier, Color: piece.Red, Point: 2},
	})
	assert.Equal(t, WinnerB, Compare(mixed, pure))
}

func TestCompareStraightOutranksTripleOfSameCount(t *testing.T) {
	straight := piece.Classify([]piece.Piece{
		{Rank: piece.Cannon, Color: piece.Red, Point: 9},
		{Rank: piece.Horse, Color: piece.Red, Point: 10},
		{Rank: piece.Chariot, Color: piece.Red, Point: 11},
	})
	triple := piece.Classify([]piece.Piece{
		{Rank: piece.Soldier, Color: piece.Black, Point: 5},
		{Rank: piece.Soldier, Color: piece.Black, Point: 4},
		{Rank: piece.Soldier, Color: piece.Black, Point: 3},
	})
	assert.Equal(t, WinnerA, Compare(straight, triple))
}

func TestResolveTurnPicksHighestContender(t *testing.T) {
	plays := map[int]piece.Play{
		0: piece.Classify([]piece.Piece{{Rank: piece.Cannon, Color: piece.Red, Point: 9}}),
		1: piece.Classify([]piece.Piece{{Rank: piece.General, Color: piece.Red, Point: 14}}),
		2: {Type: piece.Pass},
		3: {Type: piece.Pass},
	}
	winner, pile := ResolveTurn(plays, []int{0, 1, 2, 3}, 0)
	assert.Equal(t, 1, winner)
	assert.Equal(t, 2, pile)
}

func TestResolveTurnUncontestedWhenAllPass(t *testing.T) {
	plays := map[int]piece.Play{
		0: piece.Classify([]piece.Piece{{Rank: piece.Cannon, Color: piece.Red, Point: 9}}),
		1: {Type: piece.Pass},
		2: {Type: piece.Pass},
		3: {Type: piece.Pass},
	}
	winner, pile := ResolveTurn(plays, []int{0, 1, 2, 3}, 0)
	assert.Equal(t, 0, winner)
	assert.Equal(t, 1, pile)
}

func TestResolveTurnTieGoesToEarliestPlay(t *testing.T) {
	leadPlay := piece.Classify([]piece.Piece{
		{Rank: piece.Advisor, Color: piece.Red, Point: 13},
		{Rank: piece.Advisor, Color: piece.Black, Point: 13},
	})
	tiedPlay := piece.Classify([]piece.Piece{
		{Rank: piece.Advisor, Color: piece.Red, Point: 13},
		{Rank: piece.Advisor, Color: piece.Black, Point: 13},
	})
	plays := map[int]piece.Play{
		0: leadPlay,
		1: tiedPlay,
	}
	winner, _ := ResolveTurn(plays, []int{0, 1}, 0)
	assert.Equal(t, 0, winner, "equal-strength MIXED plays keep the earlier leader")
}

func TestResolveTurnNonMatchingTypeIsTreatedAsPassButLeavesHand(t *testing.T) {
	leadPlay := piece.Classify([]piece.Piece{
		{Rank: piece.General, Color: piece.Red, Point: 14},
		{Rank: piece.Advisor, Color: piece.Red, Point: 13},
		{Rank: piece.Elephant, Color: piece.Red, Point: 12},
	})
	wrongShape := piece.Classify([]piece.Piece{
		{Rank: piece.Soldier, Color: piece.Red, Point: 5},
		{Rank: piece.Soldier, Color: piece.Red, Point: 4},
		{Rank: piece.Soldier, Color: piece.Red, Point: 3},
	})
	plays := map[int]piece.Play{
		0: leadPlay,
		1: wrongShape,
	}
	winner, pile := ResolveTurn(plays, []int{0, 1}, 0)
	assert.Equal(t, 0, winner)
	assert.Equal(t, 6, pile, "non-contending play's pieces still leave the hand and join the pile")
}

func TestScoreRoundMatchAwardsBonus(t *testing.T) {
	declared := map[int]int{0: 3, 1: 2}
	captured := map[int]int{0: 3, 1: 4}
	deltas := ScoreRound(declared, captured, 1)
	assert.Equal(t, basePoints+bonusPoints, deltas[0])
	assert.Equal(t, -2, deltas[1])
}

func TestScoreRoundScalesByMultiplier(t *testing.T) {
	declared := map[int]int{0: 3}
	captured := map[int]int{0: 3}
	deltas := ScoreRound(declared, captured, 2)
	assert.Equal(t, (basePoints+bonusPoints)*2, deltas[0])
}
