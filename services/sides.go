package services

import (
	"math/rand/v2"

	"debatearena/models"
)

// Coin is the randomness source used when votes cannot decide the sides
type Coin interface {
	Heads() bool
}

type randCoin struct{}

func (randCoin) Heads() bool { return rand.IntN(2) == 0 }

// DefaultCoin flips with math/rand/v2
var DefaultCoin Coin = randCoin{}

// ResolveSides turns two optional preferences into a binding, opposite assignment.
//
// Differing votes are honoured, a single vote wins its preference, and matching or missing
// votes fall to a fair coin. The result never gives both parties the same side.
func ResolveSides(voteA, voteB models.Side, coin Coin) (sideA, sideB models.Side) {
	if coin == nil {
		coin = DefaultCoin
	}
	switch {
	case voteA.Valid() && voteB.Valid() && voteA != voteB:
		return voteA, voteB
	case voteA.Valid() && !voteB.Valid():
		return voteA, voteA.Opposite()
	case !voteA.Valid() && voteB.Valid():
		return voteB.Opposite(), voteB
	}
	if coin.Heads() {
		return models.SidePro, models.SideCon
	}
	return models.SideCon, models.SidePro
}
