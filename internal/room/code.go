package room

import (
	"math/rand"
	"strings"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// generateCode produces a human-shareable room code: 6 characters drawn
// from an alphabet that drops easily-confused glyphs (0/O, 1/I/L).
func generateCode(rng *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}
