package model

import (
	"strconv"
	"strings"
)

// Header is the canonical column order for persisted demographic tables.
var Header = []string{"Area Name", "id", "Total", "Hispanic", "White", "Black", "Asian", "Mixed", "Others"}

// Categories lists the six mutually exclusive canonical categories.
var Categories = []string{"Hispanic", "White", "Black", "Asian", "Mixed", "Others"}

// RawRow is one source row before reclassification. Counts is keyed by
// normalized column label.
type RawRow struct {
	AreaName string
	RawID    string
	Counts   map[string]int64
	Line     int // 1-based line in the source file, for diagnostics
}

// CanonicalRecord is a demographic row in the fixed six-category schema.
type CanonicalRecord struct {
	AreaName string `json:"area_name"`
	ID       string `json:"id"`
	Total    int64  `json:"total"`
	Hispanic int64  `json:"hispanic"`
	White    int64  `json:"white"`
	Black    int64  `json:"black"`
	Asian    int64  `json:"asian"`
	Mixed    int64  `json:"mixed"`
	Others   int64  `json:"others"`
}

// Sum returns the sum of the six category counts.
func (r CanonicalRecord) Sum() int64 {
	return r.Hispanic + r.White + r.Black + r.Asian + r.Mixed + r.Others
}

// Count returns the count for a canonical column name (case-insensitive).
func (r CanonicalRecord) Count(column string) (int64, bool) {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case "total":
		return r.Total, true
	case "hispanic":
		return r.Hispanic, true
	case "white":
		return r.White, true
	case "black":
		return r.Black, true
	case "asian":
		return r.Asian, true
	case "mixed":
		return r.Mixed, true
	case "others":
		return r.Others, true
	}
	return 0, false
}

// Value returns the numeric value mapped for field. Plain category names yield
// counts; a trailing "%" yields the category's share of Total in percent.
func (r CanonicalRecord) Value(field string) (float64, error) {
	name := strings.TrimSpace(field)
	if pct, ok := strings.CutSuffix(name, "%"); ok {
		n, found := r.Count(pct)
		if !found || strings.EqualFold(strings.TrimSpace(pct), "total") {
			return 0, NewValidationError(UnknownField, "", "unknown value field %q", field)
		}
		if r.Total == 0 {
			return 0, nil
		}
		return float64(n) / float64(r.Total) * 100, nil
	}
	n, found := r.Count(name)
	if !found {
		return 0, NewValidationError(UnknownField, "", "unknown value field %q", field)
	}
	return float64(n), nil
}

// ValueFields lists every field name accepted by Value.
func ValueFields() []string {
	fields := []string{"Total"}
	fields = append(fields, Categories...)
	for _, c := range Categories {
		fields = append(fields, c+"%")
	}
	return fields
}

// Strings renders the record in Header order.
func (r CanonicalRecord) Strings() []string {
	return []string{
		r.AreaName,
		r.ID,
		strconv.FormatInt(r.Total, 10),
		strconv.FormatInt(r.Hispanic, 10),
		strconv.FormatInt(r.White, 10),
		strconv.FormatInt(r.Black, 10),
		strconv.FormatInt(r.Asian, 10),
		strconv.FormatInt(r.Mixed, 10),
		strconv.FormatInt(r.Others, 10),
	}
}
