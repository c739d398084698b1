package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultTokenBytes = 3

// HexTokenGenerator draws n random bytes and renders them as upper-case hex,
// so the default of 3 bytes yields a 6 character code.
type HexTokenGenerator struct {
	n int
}

func NewHexTokenGenerator(n int) *HexTokenGenerator {
	if n <= 0 {
		n = defaultTokenBytes
	}
	return &HexTokenGenerator{n: n}
}

func (g *HexTokenGenerator) Generate() (string, error) {
	buf := make([]byte, g.n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
