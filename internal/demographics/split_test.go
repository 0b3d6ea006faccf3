package demographics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-choropleth/internal/model"
)

func TestSplit(t *testing.T) {
	records := []model.CanonicalRecord{
		{ID: "0400000US13", Total: 30},
		{ID: "0500000US13001", Total: 10},
		{ID: "0500000US13003", Total: 20},
	}

	total, perUnit, err := Split(records)
	require.NoError(t, err)
	assert.Equal(t, "0400000US13", total.ID)
	require.Len(t, perUnit, 2)
	assert.Equal(t, "0500000US13001", perUnit[0].ID)
	assert.Equal(t, "0500000US13003", perUnit[1].ID)

	rebuilt := append([]model.CanonicalRecord{total}, perUnit...)
	assert.Equal(t, records, rebuilt)
}

func TestSplit_DoesNotAliasInput(t *testing.T) {
	records := []model.CanonicalRecord{{ID: "a"}, {ID: "b"}}
	_, perUnit, err := Split(records)
	require.NoError(t, err)

	perUnit[0].ID = "changed"
	assert.Equal(t, "b", records[1].ID)
}

func TestSplit_SingleRecord(t *testing.T) {
	total, perUnit, err := Split([]model.CanonicalRecord{{ID: "only"}})
	require.NoError(t, err)
	assert.Equal(t, "only", total.ID)
	assert.Empty(t, perUnit)
}

func TestSplit_Empty(t *testing.T) {
	_, _, err := Split(nil)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.EmptyDataset))
}
