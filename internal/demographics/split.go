package demographics

import "github.com/sells-group/census-choropleth/internal/model"

// Split separates the jurisdiction total (the first record) from the per-unit
// records. perUnit is a new slice in the original order.
func Split(records []model.CanonicalRecord) (model.CanonicalRecord, []model.CanonicalRecord, error) {
	if len(records) == 0 {
		return model.CanonicalRecord{}, nil, model.NewValidationError(model.EmptyDataset, "", "no records to split")
	}
	perUnit := make([]model.CanonicalRecord, len(records)-1)
	copy(perUnit, records[1:])
	return records[0], perUnit, nil
}
