package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbeccah/airtable/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := Encode("row-42", "abc123")
	require.NotEmpty(t, raw)

	rowID, stateKey, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "row-42", rowID)
	assert.Equal(t, "abc123", stateKey)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode("not base64!!!")
	assert.Error(t, err)

	// Valid base64, invalid payload.
	_, _, err = Decode("eyJub3BlIjp0cnVlfQ==")
	assert.Error(t, err)
}

func TestDecodeRejectsMissingRowID(t *testing.T) {
	raw := Encode("", "key")
	_, _, err := Decode(raw)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("k1", "k1"))
	assert.Error(t, Validate("k1", "k2"))
}

func TestStateKeyChangesWithViewState(t *testing.T) {
	filters := []model.FilterCondition{
		{ColumnID: "col-a", Operator: model.FilterContains, Value: "x"},
	}
	sorts := []model.SortCondition{
		{ColumnID: "col-b", Order: model.SortNumberAsc},
	}

	base := StateKey("view-1", filters, sorts)

	// Same inputs give the same key.
	assert.Equal(t, base, StateKey("view-1", filters, sorts))

	// Any change to filters or sort produces a different key.
	changedFilter := []model.FilterCondition{
		{ColumnID: "col-a", Operator: model.FilterContains, Value: "y"},
	}
	assert.NotEqual(t, base, StateKey("view-1", changedFilter, sorts))

	changedSort := []model.SortCondition{
		{ColumnID: "col-b", Order: model.SortNumberDesc},
	}
	assert.NotEqual(t, base, StateKey("view-1", filters, changedSort))

	assert.NotEqual(t, base, StateKey("view-2", filters, sorts))
}

func TestStateKeyIgnoresSecondarySorts(t *testing.T) {
	first := []model.SortCondition{{ColumnID: "col-a", Order: model.SortTextAsc}}
	withSecond := append(first, model.SortCondition{ColumnID: "col-b", Order: model.SortTextDesc})

	// Only the first sort participates in the ordering identity.
	assert.Equal(t, StateKey("v", nil, first), StateKey("v", nil, withSecond))
}
