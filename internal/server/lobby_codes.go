package server

import (
	"errors"
	"math/rand"
	"strings"
)

const lobbyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateLobbyCode returns a 4-character code not present in usedCodes.
func GenerateLobbyCode(usedCodes map[string]bool) string {
	for {
		code := make([]byte, 4)
		for i := range code {
			code[i] = lobbyCodeAlphabet[rand.Intn(len(lobbyCodeAlphabet))]
		}
		lobbyCode := string(code)

		if !usedCodes[lobbyCode] {
			return lobbyCode
		}
	}
}

func ValidateLobbyCode(code string) error {
	if len(code) != 4 {
		return errors.New("Lobby code must be exactly 4 characters")
	}

	for _, ch := range strings.ToUpper(code) {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return errors.New("Lobby code must contain only letters and digits")
		}
	}

	return nil
}

func NormalizeLobbyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
