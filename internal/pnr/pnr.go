// Package pnr issues passenger name record locators.
package pnr

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet leaves out 0, 1, I and O so codes survive being read over the phone.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const Length = 6

// Generate returns a random locator. Uniqueness is the caller's concern: the
// bookings table carries a unique constraint and inserts are retried on conflict.
func Generate() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pnr: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether s looks like a locator issued by Generate.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabet(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
