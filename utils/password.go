package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var randInt = rand.Int

// GeneratePassword returns a random alphanumeric password of at least 8 characters.
func GeneratePassword(length int) (string, error) {
	if length < 8 {
		return "", errors.New("password length must be at least 8")
	}
	max := big.NewInt(int64(len(passwordAlphabet)))
	buffer := make([]byte, length)
	for i := range buffer {
		n, err := randInt(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buffer[i] = passwordAlphabet[n.Int64()]
	}
	return string(buffer), nil
}
