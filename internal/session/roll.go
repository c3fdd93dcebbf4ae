package session

import "math/rand"

const (
	dicePerRoll = 5
	dieSides    = 6
)

// rollDice is a package var so tests can pin the outcome.
var rollDice = func() []int {
	out := make([]int, dicePerRoll)
	for i := range out {
		out[i] = rand.Intn(dieSides) + 1
	}
	return out
}
