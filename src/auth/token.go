package auth

import (
	"crypto/rand"
	"io"

	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

// Alphanumerics only, so tokens survive being pasted into URLs, emails and
// chat clients unmangled.
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeToken returns a random token of the given length, suitable as an
// unguessable capability.
func MakeToken(length int) (string, error) {
	randBytes := make([]byte, length)
	_, err := io.ReadFull(rand.Reader, randBytes)
	if err != nil {
		return "", oops.New(err, "failed to read random bytes for token")
	}

	token := make([]byte, length)
	for i, b := range randBytes {
		token[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(token), nil
}
