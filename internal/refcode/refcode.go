// Package refcode generates the two booking identifiers. They live in
// independent code spaces: the reference code is short and user-facing,
// the scan token is long and proves possession of the scannable artifact.
package refcode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ReferenceLength is the number of characters in a reference code.
const ReferenceLength = 8

// Alphabet for reference codes. Crockford-style base32: no I, L, O or U,
// so codes survive being read aloud or typed at the door.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// scanTokenBytes of entropy go into every scan token (64 hex chars).
const scanTokenBytes = 32

// NewReference returns a fresh reference code. Uniqueness is NOT assumed:
// 32^8 codes will collide eventually, so creation checks the unique index
// and retries with a new code.
func NewReference() (string, error) {
	buf := make([]byte, ReferenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, ReferenceLength)
	for i, b := range buf {
		code[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(code), nil
}

// NewScanToken returns a high-entropy token for the machine-readable
// artifact. It is never displayed in any UI.
func NewScanToken() (string, error) {
	buf := make([]byte, scanTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
