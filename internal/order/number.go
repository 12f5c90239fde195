package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	numberAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberSuffixLen   = 6
	numberMaxAttempts = 5
)

var ErrOrderNumberExhausted = errors.New("could not generate a unique order number")

func randomSuffix() string {
	b := make([]byte, numberSuffixLen)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// nothing sensible to fall back to
			panic(err)
		}
		b[i] = numberAlphabet[n.Int64()]
	}
	return string(b)
}

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), randomSuffix())
}

// AllocateOrderNumber generates date-coded candidates until taken reports one
// as free, bounded by a fixed attempt budget. A unique index on the column
// backs this up: a racing insert still fails cleanly.
func AllocateOrderNumber(now time.Time, taken func(string) (bool, error)) (string, error) {
	for attempt := 0; attempt < numberMaxAttempts; attempt++ {
		candidate := newOrderNumber(now)
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrOrderNumberExhausted
}
