package services

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	digits       = "0123456789"
	couponLetter = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRandomCode returns n random decimal digits.
func GenerateRandomCode(n int) string {
	return randomString(digits, n)
}

// GenerateCouponCode returns n random uppercase alphanumerics.
func GenerateCouponCode(n int) string {
	return randomString(couponLetter, n)
}

// GenerateCSRFToken returns 32 random bytes hex encoded.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// randomIntn returns a uniform value in [0, n).
func randomIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

func randomString(alphabet string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[randomIntn(len(alphabet))]
	}
	return string(out)
}
