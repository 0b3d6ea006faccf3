package demographics

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/fetcher"
	"github.com/sells-group/census-choropleth/internal/geoid"
	"github.com/sells-group/census-choropleth/internal/model"
)

// PrepareOptions configures a Prepare run.
type PrepareOptions struct {
	InputPath   string
	SkipRows    int    // rows above the label header (census code row)
	SheetName   string // XLSX input only
	Schema      Schema
	Normalizer  geoid.Normalizer // per-unit ids must normalize cleanly
	PerUnitPath string
	TotalPath   string
}

// Result holds the records written by Prepare.
type Result struct {
	Total   model.CanonicalRecord
	PerUnit []model.CanonicalRecord
}

// Prepare reads the raw tabulation, reclassifies and splits it, then writes
// the per-unit and total tables. Every row is validated before anything is
// written, so a failed run leaves no output files behind.
func Prepare(opts PrepareOptions) (*Result, error) {
	log := zap.L().With(zap.String("component", "demographics.prepare"), zap.String("input", opts.InputPath))

	if err := opts.Schema.Validate(); err != nil {
		return nil, err
	}

	rows, err := fetcher.ReadTable(opts.InputPath, fetcher.TableOptions{SkipRows: opts.SkipRows, SheetName: opts.SheetName})
	if err != nil {
		return nil, eris.Wrap(err, "demographics: read input")
	}
	if len(rows) == 0 {
		return nil, model.NewValidationError(model.EmptyDataset, "", "%s has no header row", opts.InputPath)
	}

	raw, err := ParseRaw(rows[0], rows[1:], opts.Schema, opts.SkipRows+2)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: parse rows")
	}

	records, err := ReclassifyAll(raw, opts.Schema)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: reclassify")
	}

	total, perUnit, err := Split(records)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: split")
	}

	for _, r := range perUnit {
		if _, err := opts.Normalizer.Normalize(r.ID); err != nil {
			return nil, eris.Wrapf(err, "demographics: per-unit row %q", r.AreaName)
		}
	}

	if err := WriteTables(opts.TotalPath, total, opts.PerUnitPath, perUnit); err != nil {
		return nil, err
	}

	log.Info("demographic tables written",
		zap.String("total_path", opts.TotalPath),
		zap.String("per_unit_path", opts.PerUnitPath),
		zap.String("jurisdiction", total.AreaName),
		zap.Int64("total_population", total.Total),
		zap.Int("units", len(perUnit)),
	)

	return &Result{Total: total, PerUnit: perUnit}, nil
}
