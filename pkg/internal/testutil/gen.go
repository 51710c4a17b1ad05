package testutil

import (
	crand "crypto/rand"
	"encoding/hex"
)

func RandomBytes(size int) []byte {
	bytes := make([]byte, size)
	_, _ = crand.Read(bytes)
	return bytes
}

// RandomPath returns a request path no other test will use.
func RandomPath() string {
	return "/" + hex.EncodeToString(RandomBytes(8))
}

// RandomName returns a resource name with the given prefix, suitable for
// tables and buckets.
func RandomName(prefix string) string {
	return prefix + "-" + hex.EncodeToString(RandomBytes(6))
}
