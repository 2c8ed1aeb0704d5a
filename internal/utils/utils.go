package utils

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/scythe504/partybox-server/internal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// GenerateRoomCode draws internal.RoomCodeLength characters from the
// unambiguous room code alphabet.
func GenerateRoomCode() string {
	code := make([]byte, internal.RoomCodeLength)
	for i := range internal.RoomCodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(internal.RoomCodeAlphabet))))
		if err != nil {
			code[i] = internal.RoomCodeAlphabet[rand.IntN(len(internal.RoomCodeAlphabet))]
			continue
		}
		code[i] = internal.RoomCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// UniqueRoomCode keeps drawing until exists reports a free code or the
// attempt budget runs out.
func UniqueRoomCode(exists func(code string) bool, attempts int) (string, bool) {
	for range attempts {
		code := GenerateRoomCode()
		if !exists(code) {
			return code, true
		}
	}
	return "", false
}

// NormalizeCode upper-cases and trims a user typed room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code only uses the room code alphabet and has
// the right length.
func ValidCode(code string) bool {
	if len(code) != internal.RoomCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(internal.RoomCodeAlphabet, r) {
			return false
		}
	}
	return true
}

func GenerateID() string {
	return uuid.NewString()
}
