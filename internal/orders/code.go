package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	releaseCodeMin  = 100000
	releaseCodeSpan = 900000
	releaseCodeLen  = 6
)

// GenerateReleaseCode draws a 6-digit code uniformly from [100000, 999999]
// using a cryptographic source. Codes are scoped per order, so cross-order
// collisions are acceptable.
func GenerateReleaseCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(releaseCodeSpan))
	if err != nil {
		return "", fmt.Errorf("drawing release code: %w", err)
	}
	return strconv.FormatInt(releaseCodeMin+n.Int64(), 10), nil
}

func isReleaseCodeFormat(code string) bool {
	if len(code) != releaseCodeLen {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return code[0] != '0'
}
