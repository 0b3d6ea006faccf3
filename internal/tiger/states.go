package tiger

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-choropleth/internal/geoid"
)

// FIPSCodes maps postal abbreviation to 2-digit FIPS code for the 50 states,
// DC and the five territories that TIGER/Line county files include.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56",
	"AS": "60", "GU": "66", "MP": "69", "PR": "72", "VI": "78",
}

// abbrByFIPS is a reverse lookup from FIPS code to state abbreviation.
var abbrByFIPS map[string]string

func init() {
	abbrByFIPS = make(map[string]string, len(FIPSCodes))
	for abbr, fips := range FIPSCodes {
		abbrByFIPS[fips] = abbr
	}
}

// AbbrFromFIPS returns the postal abbreviation for a FIPS code. One-digit
// codes are zero-padded first.
func AbbrFromFIPS(fips string) (string, bool) {
	abbr, ok := abbrByFIPS[geoid.NormalizeStateFIPS(fips)]
	return abbr, ok
}

// StateFIPS resolves a jurisdiction given as a FIPS code ("13", "1") or a
// postal abbreviation ("GA") to its 2-digit FIPS code.
func StateFIPS(code string) (string, error) {
	code = strings.TrimSpace(code)
	if fips, ok := FIPSCodes[strings.ToUpper(code)]; ok {
		return fips, nil
	}
	fips := geoid.NormalizeStateFIPS(code)
	if _, ok := abbrByFIPS[fips]; ok {
		return fips, nil
	}
	return "", eris.Errorf("tiger: unknown state or territory %q", code)
}

// AllStateAbbrs returns every abbreviation in FIPSCodes, sorted.
func AllStateAbbrs() []string {
	abbrs := make([]string, 0, len(FIPSCodes))
	for abbr := range FIPSCodes {
		abbrs = append(abbrs, abbr)
	}
	sort.Strings(abbrs)
	return abbrs
}
