package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"strings"
)

// GenerateSessionCode creates a random session code
func GenerateSessionCode() string {
	code := make([]byte, SessionCodeLength)
	for i := range SessionCodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(SessionCodeChars))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = SessionCodeChars[rand.IntN(len(SessionCodeChars))]
			continue
		}
		code[i] = SessionCodeChars[n.Int64()]
	}
	return string(code)
}

// NormalizeCode trims and upper-cases a user-supplied session code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FlipCoin returns true or false with equal probability
func FlipCoin() bool {
	return rand.IntN(2) == 0
}

func inBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}
