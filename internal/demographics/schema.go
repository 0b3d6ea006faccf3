// Package demographics reclassifies census race tabulations into the
// canonical six-category schema and splits off the jurisdiction total.
package demographics

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Schema maps verbose source column labels onto canonical categories.
type Schema struct {
	IDColumn   string   `yaml:"id_column" mapstructure:"id_column"`
	NameColumn string   `yaml:"name_column" mapstructure:"name_column"`
	Total      string   `yaml:"total" mapstructure:"total"`
	Hispanic   string   `yaml:"hispanic" mapstructure:"hispanic"`
	White      string   `yaml:"white" mapstructure:"white"`
	Black      string   `yaml:"black" mapstructure:"black"`
	Asian      string   `yaml:"asian" mapstructure:"asian"`
	Mixed      string   `yaml:"mixed" mapstructure:"mixed"`
	Others     []string `yaml:"others" mapstructure:"others"`
}

const notHispanicOneRace = "!!Total:!!Not Hispanic or Latino:!!Population of one race:!!"

// DefaultSchema returns the labels of the 2020 Census P2 table (Hispanic or
// Latino, and not Hispanic or Latino by race).
func DefaultSchema() Schema {
	return Schema{
		IDColumn:   "id",
		NameColumn: "Geographic Area Name",
		Total:      "!!Total:",
		Hispanic:   "!!Total:!!Hispanic or Latino",
		White:      notHispanicOneRace + "White alone",
		Black:      notHispanicOneRace + "Black or African American alone",
		Asian:      notHispanicOneRace + "Asian alone",
		Mixed:      "!!Total:!!Not Hispanic or Latino:!!Population of two or more races:",
		Others: []string{
			notHispanicOneRace + "American Indian and Alaska Native alone",
			notHispanicOneRace + "Native Hawaiian and Other Pacific Islander alone",
			notHispanicOneRace + "Some Other Race alone",
		},
	}
}

// LoadSchema reads a YAML schema file. Unset fields keep DefaultSchema values.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, eris.Wrapf(err, "demographics: read schema %s", path)
	}

	s := DefaultSchema()
	s.Others = nil
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, eris.Wrapf(err, "demographics: parse schema %s", path)
	}
	if len(s.Others) == 0 {
		s.Others = DefaultSchema().Others
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s.Normalized(), nil
}

// NormalizeLabel makes a column label comparable regardless of upstream
// formatting: NFKC-folds it, drops byte order marks and trims whitespace.
func NormalizeLabel(label string) string {
	label = norm.NFKC.String(label)
	label = strings.ReplaceAll(label, "\ufeff", "")
	return strings.TrimSpace(label)
}

// Normalized returns a copy with every label passed through NormalizeLabel.
func (s Schema) Normalized() Schema {
	out := Schema{
		IDColumn:   NormalizeLabel(s.IDColumn),
		NameColumn: NormalizeLabel(s.NameColumn),
		Total:      NormalizeLabel(s.Total),
		Hispanic:   NormalizeLabel(s.Hispanic),
		White:      NormalizeLabel(s.White),
		Black:      NormalizeLabel(s.Black),
		Asian:      NormalizeLabel(s.Asian),
		Mixed:      NormalizeLabel(s.Mixed),
		Others:     make([]string, len(s.Others)),
	}
	for i, l := range s.Others {
		out.Others[i] = NormalizeLabel(l)
	}
	return out
}

// CountLabels returns every label whose cells hold counts, directly mapped
// categories first.
func (s Schema) CountLabels() []string {
	labels := []string{s.Total, s.Hispanic, s.White, s.Black, s.Asian, s.Mixed}
	return append(labels, s.Others...)
}

// Validate rejects empty or duplicated labels and an empty Others list.
func (s Schema) Validate() error {
	n := s.Normalized()
	if n.IDColumn == "" || n.NameColumn == "" {
		return eris.New("demographics: schema id_column and name_column are required")
	}
	if len(n.Others) == 0 {
		return eris.New("demographics: schema others must list at least one label")
	}

	seen := make(map[string]bool)
	for _, l := range append([]string{n.IDColumn, n.NameColumn}, n.CountLabels()...) {
		if l == "" {
			return eris.New("demographics: schema has an empty label")
		}
		if seen[l] {
			return eris.Errorf("demographics: schema label %q is mapped more than once", l)
		}
		seen[l] = true
	}
	return nil
}
