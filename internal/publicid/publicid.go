// Package publicid mints the externally visible identifiers under which
// proposals are shared.
package publicid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// fallbackBase is used when neither a custom slug nor a company name is
// available.
const fallbackBase = "client"

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 6
)

// Slugify lowercases text, replaces every run of characters outside [a-z0-9]
// with a single '-', and strips leading and trailing separators. It is
// idempotent: Slugify(Slugify(x)) == Slugify(x).
func Slugify(text string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// Mint produces a public ID of the form "{base}-{suffix}" where base is the
// slugified custom slug (preferred) or company name, and suffix is six
// characters from [a-z0-9] drawn from a cryptographically strong source.
func Mint(companyName, customSlug string) (string, error) {
	base := Slugify(customSlug)
	if base == "" {
		base = Slugify(companyName)
	}
	if base == "" {
		base = fallbackBase
	}

	suffix, err := randomSuffix()
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}

func randomSuffix() (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf), nil
}
