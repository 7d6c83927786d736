package order

import "crypto/rand"

// Order numbers are a fixed prefix plus a short random suffix, e.g.
// CMD7G2KQ9XF4P. Uniqueness is backstopped by the database constraint;
// the engine retries on collision.
const (
	numberPrefix    = "CMD"
	numberSuffixLen = 10
	numberAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxNumberAttempts bounds collision retries before the checkout
	// surfaces a server error.
	maxNumberAttempts = 5
)

// NewNumber generates a fresh candidate order number.
func NewNumber() string {
	buf := make([]byte, numberSuffixLen)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return numberPrefix + string(buf)
}
