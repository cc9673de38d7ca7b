package util

import (
	"crypto/rand"
	"math/big"
)

const suffixCharset = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateShortCode returns n random lowercase alphanumerics, e.g. "x7k2ab".
// Used to disambiguate colliding slugs.
func GenerateShortCode(n int) string {
	return randomString(n, suffixCharset)
}

// RandomInt returns a uniform random integer in [lo, hi].
func RandomInt(lo, hi int64) int64 {
	num, _ := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	return lo + num.Int64()
}

func randomString(n int, charset string) string {
	result := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range result {
		num, _ := rand.Int(rand.Reader, max)
		result[i] = charset[num.Int64()]
	}
	return string(result)
}
