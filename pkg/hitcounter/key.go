package hitcounter

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeyLength is the longest key, in bytes, a request may produce. It keeps
// keys well inside the DynamoDB partition key limit.
const MaxKeyLength = 1024

// NormalizePath turns a request path into a counter key. The result is
// rooted at "/" and cleaned, so "/a//b/../c" and "a/c" share a counter.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: missing path", ErrInvalidRequest)
	}
	if !utf8.ValidString(p) {
		return "", fmt.Errorf("%w: path is not valid UTF-8", ErrInvalidRequest)
	}
	if strings.IndexFunc(p, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: path contains control characters", ErrInvalidRequest)
	}
	key := path.Clean("/" + p)
	if len(key) > MaxKeyLength {
		return "", fmt.Errorf("%w: path longer than %d bytes", ErrInvalidRequest, MaxKeyLength)
	}
	return key, nil
}
