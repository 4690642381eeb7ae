// Package amount parses and formats contribution amounts.
package amount

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/donormap/internal/model"
)

// integerTolerance is how close a value must be to a whole number to be
// displayed without a fractional part.
const integerTolerance = 1e-9

// smallestPlain is the magnitude below which Format uses exponent notation.
const smallestPlain = 1e-4

// fieldAliases are the exact (case-insensitive) amount column names.
var fieldAliases = []string{"amnt", "amount"}

// fieldMarker is the substring used to find an amount column when no alias matches.
const fieldMarker = "am"

var dollarPrinter = message.NewPrinter(language.English)

// Parse converts currency-like text to a number. Whitespace, "$" and ","
// are removed. Empty or unparseable text yields 0.
func Parse(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out-of-range text keeps its ±Inf (or 0 on underflow), the same
		// value "inf" itself parses to.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v
		}
		return 0
	}
	return v
}

// ParseOptional is Parse for a value that may be absent entirely.
func ParseOptional(s *string) float64 {
	if s == nil {
		return 0
	}
	return Parse(*s)
}

// Field returns the name of the amount column in a record. An exact alias
// match wins; otherwise the first column whose name contains the marker is
// used. The boolean is false when no column qualifies.
func Field(r model.Record) (string, bool) {
	for _, col := range r.Columns {
		if col == "" {
			continue
		}
		lc := strings.ToLower(col)
		for _, alias := range fieldAliases {
			if lc == alias {
				return col, true
			}
		}
	}
	for _, col := range r.Columns {
		if col != "" && strings.Contains(strings.ToLower(col), fieldMarker) {
			return col, true
		}
	}
	return "", false
}

// FromRecord returns the parsed amount of a record, or 0 when it has no
// amount column.
func FromRecord(r model.Record) float64 {
	col, ok := Field(r)
	if !ok {
		return 0
	}
	v, _ := r.Lookup(col)
	return Parse(v)
}

// Format renders an amount for output. Values within 1e-9 of a whole
// number print as that integer; anything else prints its shortest decimal
// form, switching to exponent notation below 1e-4 (e.g. "1e-05").
func Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	r := math.Round(v)
	if math.Abs(v-r) < integerTolerance {
		if r == 0 {
			return "0"
		}
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	if math.Abs(v) < smallestPlain {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDollars renders an amount for console reports, e.g. "$1,234.5".
func FormatDollars(v float64) string {
	s := Format(v)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "$" + s
	}
	out := sign + "$" + dollarPrinter.Sprintf("%d", n)
	if hasFrac {
		out += "." + frac
	}
	return out
}
