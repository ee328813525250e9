package crypto

import (
	"crypto/rand"
	"math/big"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SecureNonce creates a random alphanumeric nonce of the given length, as
// required by EIP-4361 (at least 8 characters, [a-zA-Z0-9]).
func SecureNonce(length int) (string, error) {
	max := big.NewInt(int64(len(nonceAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = nonceAlphabet[n.Int64()]
	}
	return string(b), nil
}
