package demographics

import (
	"strconv"
	"strings"

	"github.com/sells-group/census-choropleth/internal/model"
)

// ParseRaw turns a header row plus data rows into RawRows. Only the schema's
// count labels are parsed; other columns (annotations, margins) are ignored.
// firstLine is the 1-based source line of rows[0], used in diagnostics.
func ParseRaw(header []string, rows [][]string, schema Schema, firstLine int) ([]model.RawRow, error) {
	s := schema.Normalized()

	index := make(map[string][]int, len(header))
	for i, h := range header {
		label := NormalizeLabel(h)
		index[label] = append(index[label], i)
	}

	column := func(label string) (int, bool, error) {
		cols := index[label]
		switch len(cols) {
		case 0:
			return 0, false, nil
		case 1:
			return cols[0], true, nil
		default:
			return 0, false, model.NewValidationError(model.UnknownCategoryLabel, "",
				"column %q appears %d times in header", label, len(cols))
		}
	}

	idCol, ok, err := column(s.IDColumn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewValidationError(model.UnknownCategoryLabel, "", "id column %q not in header", s.IDColumn)
	}
	nameCol, ok, err := column(s.NameColumn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewValidationError(model.UnknownCategoryLabel, "", "name column %q not in header", s.NameColumn)
	}

	countCols := make(map[string]int)
	for _, label := range s.CountLabels() {
		col, ok, err := column(label)
		if err != nil {
			return nil, err
		}
		if ok {
			countCols[label] = col
		}
	}

	out := make([]model.RawRow, 0, len(rows))
	for i, cells := range rows {
		line := firstLine + i
		row := model.RawRow{
			AreaName: cell(cells, nameCol),
			RawID:    strings.TrimSpace(cell(cells, idCol)),
			Counts:   make(map[string]int64, len(countCols)),
			Line:     line,
		}
		for label, col := range countCols {
			n, err := parseCount(cell(cells, col))
			if err != nil {
				return nil, model.NewValidationError(model.InvalidCount, rowKey(row),
					"line %d column %q: %v", line, label, err)
			}
			row.Counts[label] = n
		}
		out = append(out, row)
	}
	return out, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func rowKey(row model.RawRow) string {
	if row.RawID != "" {
		return row.RawID
	}
	return "line " + strconv.Itoa(row.Line)
}

// Reclassify maps one RawRow onto a CanonicalRecord and checks that the six
// categories add up to the declared total.
func Reclassify(row model.RawRow, schema Schema) (model.CanonicalRecord, error) {
	s := schema.Normalized()
	key := rowKey(row)

	lookup := func(label string) (int64, error) {
		n, ok := row.Counts[label]
		if !ok {
			return 0, model.NewValidationError(model.UnknownCategoryLabel, key, "column %q not found", label)
		}
		return n, nil
	}

	rec := model.CanonicalRecord{AreaName: row.AreaName, ID: row.RawID}
	direct := []struct {
		label string
		dst   *int64
	}{
		{s.Total, &rec.Total},
		{s.Hispanic, &rec.Hispanic},
		{s.White, &rec.White},
		{s.Black, &rec.Black},
		{s.Asian, &rec.Asian},
		{s.Mixed, &rec.Mixed},
	}
	for _, d := range direct {
		n, err := lookup(d.label)
		if err != nil {
			return model.CanonicalRecord{}, err
		}
		*d.dst = n
	}

	for _, label := range s.Others {
		n, err := lookup(label)
		if err != nil {
			return model.CanonicalRecord{}, err
		}
		rec.Others += n
	}

	if sum := rec.Sum(); sum != rec.Total {
		return model.CanonicalRecord{}, model.NewValidationError(model.ReconciliationMismatch, key,
			"categories sum to %d, declared total is %d", sum, rec.Total)
	}
	return rec, nil
}

// ReclassifyAll reclassifies rows in order and stops at the first failure.
func ReclassifyAll(rows []model.RawRow, schema Schema) ([]model.CanonicalRecord, error) {
	out := make([]model.CanonicalRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := Reclassify(row, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
