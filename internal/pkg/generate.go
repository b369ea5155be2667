package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateGameID() string {
	return uuid.NewString()
}

func GeneratePlayerID() string {
	return "player_" + uuid.NewString()
}

func GenerateBotID() string {
	return "bot_" + uuid.NewString()
}

// GenerateJoinCode returns a random code of the given length over [A-Z0-9].
func GenerateJoinCode(length int) (string, error) {
	code := make([]byte, length)
	limit := big.NewInt(int64(len(joinCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}

		code[i] = joinCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// IsJoinCodeChar reports whether r belongs to the join code alphabet.
func IsJoinCodeChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
