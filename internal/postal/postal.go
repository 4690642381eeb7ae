// Package postal canonicalizes free-form postal code text into ZIP tokens.
package postal

import (
	"regexp"
	"strings"

	"github.com/sells-group/donormap/internal/model"
)

// Token is a canonical postal code: either "NNNNN" or "NNNNN-NNNN".
type Token string

// Normalize extracts a postal token from free-form text. Text that already
// contains a hyphen is trusted as-is; nine digits become ZIP+4; five or more
// digits yield the leading five. Anything else has no token.
func Normalize(s string) (Token, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}

	switch {
	case strings.Contains(s, "-"):
		return Token(s), true
	case len(digits) == 9:
		return Token(string(digits[:5]) + "-" + string(digits[5:])), true
	case len(digits) >= 5:
		return Token(digits[:5]), true
	default:
		return "", false
	}
}

// Parent returns the 5-digit portion of the token.
func (t Token) Parent() Token {
	five, _, _ := strings.Cut(string(t), "-")
	return Token(five)
}

// IsPlus4 reports whether the token carries a +4 suffix.
func (t Token) IsPlus4() bool {
	return strings.Contains(string(t), "-")
}

func (t Token) String() string { return string(t) }

// extractColumns are the columns searched first by Extract.
var extractColumns = []string{"ZIP", "Zip", "zip", "postal", "postal_code", "postalcode", "zipcode"}

var (
	zipPattern  = regexp.MustCompile(`(\d{5}(?:-\d{4})?)`)
	ninePattern = regexp.MustCompile(`(\d{9})`)
)

// Extract finds a ZIP-like token anywhere in a record. Known postal columns
// are searched first; a present-but-blank postal column means no token.
// Otherwise every value is scanned in column order.
func Extract(r model.Record) (Token, bool) {
	for _, col := range extractColumns {
		v, ok := r.Lookup(col)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return "", false
		}
		if tok, ok := search(v); ok {
			return tok, true
		}
	}
	for _, col := range r.Columns {
		if tok, ok := search(r.Values[col]); ok {
			return tok, true
		}
	}
	return "", false
}

func search(s string) (Token, bool) {
	if m := zipPattern.FindString(s); m != "" {
		return Token(m), true
	}
	if m := ninePattern.FindString(s); m != "" {
		return Token(m[:5] + "-" + m[5:]), true
	}
	return "", false
}
