// Package geoid canonicalizes geographic identifiers from census tables and
// boundary layers into one comparable form.
package geoid

import (
	"strings"

	"github.com/sells-group/census-choropleth/internal/model"
)

// CountyWidth is the width of a combined state+county FIPS code.
const CountyWidth = 5

// Normalizer keeps the trailing Width digits of an identifier. Census table
// ids such as "0500000US13001" and TIGER GEOIDs such as "13001" both
// normalize to "13001".
type Normalizer struct {
	Width int
}

// NewNormalizer returns a Normalizer for the given width, defaulting to CountyWidth.
func NewNormalizer(width int) Normalizer {
	if width <= 0 {
		width = CountyWidth
	}
	return Normalizer{Width: width}
}

// Normalize validates raw and returns its trailing Width characters. Values
// shorter than Width, or whose suffix is not all ASCII digits, are rejected
// with a MalformedIdentifier error instead of being sliced blindly.
func (n Normalizer) Normalize(raw string) (string, error) {
	width := n.Width
	if width <= 0 {
		width = CountyWidth
	}

	id := strings.TrimSpace(raw)
	if len(id) < width {
		return "", model.NewValidationError(model.MalformedIdentifier, raw,
			"identifier has %d characters, need at least %d", len(id), width)
	}

	suffix := id[len(id)-width:]
	if !isDigits(suffix) {
		return "", model.NewValidationError(model.MalformedIdentifier, raw,
			"trailing %d characters %q are not all digits", width, suffix)
	}
	return suffix, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeStateFIPS normalizes a state FIPS code to 2 digits with zero-padding.
func NormalizeStateFIPS(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 1 {
		return "0" + code
	}
	return code
}
