package demographics

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// censusHeader mirrors the label row of a P2 download: verbose labels with
// the leading space the export tool adds, plus an annotation column.
func censusHeader() []string {
	s := DefaultSchema()
	return []string{
		"id",
		"Geographic Area Name",
		" " + s.Total,
		" " + s.Hispanic,
		" !!Total:!!Not Hispanic or Latino:",
		" " + s.Mixed,
		" " + s.Others[2],
		" " + s.Asian,
		" " + s.White,
		" " + s.Others[0],
		" " + s.Black,
		" " + s.Others[1],
		"Annotation of !!Total:",
	}
}

// censusRow builds a data row in censusHeader order.
func censusRow(id, name string, total, hisp, white, black, asian, mixed, aian, nhpi, other int) []string {
	itoa := strconv.Itoa
	return []string{
		id, name,
		itoa(total), itoa(hisp), itoa(total - hisp),
		itoa(mixed), itoa(other), itoa(asian), itoa(white), itoa(aian), itoa(black), itoa(nhpi),
		"(X)",
	}
}

func writeCensusCSV(t *testing.T, rows ...[]string) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("GEO_ID,NAME,P2_001N,P2_002N,P2_003N,P2_011N,P2_010N,P2_008N,P2_005N,P2_007N,P2_006N,P2_009N,P2_001NA\n")
	all := append([][]string{censusHeader()}, rows...)
	for _, r := range all {
		for i, c := range r {
			if i > 0 {
				sb.WriteByte(',')
			}
			if strings.ContainsAny(c, ",\"") {
				c = "\"" + strings.ReplaceAll(c, "\"", "\"\"") + "\""
			}
			sb.WriteString(c)
		}
		sb.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "georgia_race_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}
