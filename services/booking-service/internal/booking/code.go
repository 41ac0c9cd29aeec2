package booking

import (
	"crypto/rand"
	"fmt"
)

const (
	codePrefix   = "LLC-"
	codeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewCode returns a human-readable booking code such as LLC-7KQ2XM. The alphabet omits
// characters that are easy to misread (0/O, 1/I).
func NewCode() (string, error) {
	var raw [codeLength]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate booking code: %w", err)
	}
	out := make([]byte, codeLength)
	for i, b := range raw {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(out), nil
}
