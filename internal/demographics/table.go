package demographics

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-choropleth/internal/fetcher"
	"github.com/sells-group/census-choropleth/internal/model"
)

// WriteTables writes the single-row total table and the per-unit table. Both
// are staged as temp files next to their targets and renamed into place only
// after both were written.
func WriteTables(totalPath string, total model.CanonicalRecord, perUnitPath string, perUnit []model.CanonicalRecord) error {
	totalTmp, err := stageCSV(totalPath, []model.CanonicalRecord{total})
	if err != nil {
		return err
	}
	perUnitTmp, err := stageCSV(perUnitPath, perUnit)
	if err != nil {
		_ = os.Remove(totalTmp)
		return err
	}

	if err := os.Rename(totalTmp, totalPath); err != nil {
		_ = os.Remove(totalTmp)
		_ = os.Remove(perUnitTmp)
		return eris.Wrapf(err, "demographics: move %s into place", totalPath)
	}
	if err := os.Rename(perUnitTmp, perUnitPath); err != nil {
		_ = os.Remove(perUnitTmp)
		_ = os.Remove(totalPath)
		return eris.Wrapf(err, "demographics: move %s into place", perUnitPath)
	}
	return nil
}

func stageCSV(path string, records []model.CanonicalRecord) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "demographics: create output dir %s", dir)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", eris.Wrapf(err, "demographics: stage %s", path)
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Strings()
	}

	if err := fetcher.WriteCSV(f, model.Header, rows); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", eris.Wrapf(err, "demographics: write %s", path)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", eris.Wrapf(err, "demographics: close %s", path)
	}
	return f.Name(), nil
}

// ReadCanonical reads a table written by WriteTables and re-checks each
// record's reconciliation.
func ReadCanonical(path string) ([]model.CanonicalRecord, error) {
	rows, err := fetcher.ReadTable(path, fetcher.TableOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "demographics: read canonical table")
	}
	if len(rows) == 0 {
		return nil, model.NewValidationError(model.EmptyDataset, "", "%s is empty", path)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[NormalizeLabel(h)] = i
	}
	for _, h := range model.Header {
		if _, ok := cols[h]; !ok {
			return nil, model.NewValidationError(model.UnknownCategoryLabel, "", "%s: column %q missing", path, h)
		}
	}

	out := make([]model.CanonicalRecord, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		rec := model.CanonicalRecord{
			AreaName: cell(cells, cols["Area Name"]),
			ID:       cell(cells, cols["id"]),
		}
		counts := []*int64{&rec.Total, &rec.Hispanic, &rec.White, &rec.Black, &rec.Asian, &rec.Mixed, &rec.Others}
		for j, name := range model.Header[2:] {
			n, err := parseCount(cell(cells, cols[name]))
			if err != nil {
				return nil, model.NewValidationError(model.InvalidCount, rec.ID,
					"%s line %d column %q: %v", path, i+2, name, err)
			}
			*counts[j] = n
		}
		if sum := rec.Sum(); sum != rec.Total {
			return nil, model.NewValidationError(model.ReconciliationMismatch, rec.ID,
				"categories sum to %d, declared total is %d", sum, rec.Total)
		}
		out = append(out, rec)
	}
	return out, nil
}
