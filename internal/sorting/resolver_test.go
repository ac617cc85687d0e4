package sorting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbeccah/airtable/internal/model"
)

type stubSource struct {
	cells []ColumnCell
	calls int
}

func (s *stubSource) ColumnCells(_ context.Context, _, _ string) ([]ColumnCell, error) {
	s.calls++
	return s.cells, nil
}

func at(sec int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestResolveNoSortIsNative(t *testing.T) {
	r := NewResolver(&stubSource{})
	ordering, err := r.Resolve(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.True(t, ordering.Native)
	assert.Empty(t, ordering.RowIDs)
}

func TestResolveRejectsUnknownOrder(t *testing.T) {
	r := NewResolver(&stubSource{})
	_, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: "sideways"},
	})
	assert.Error(t, err)
}

func TestNumericSortIsNumericNotLexicographic(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "r10", Value: "10", CreatedAt: at(1)},
		{RowID: "r2", Value: "2", CreatedAt: at(2)},
		{RowID: "r1", Value: "1", CreatedAt: at(3)},
	}}
	r := NewResolver(src)

	ordering, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortNumberAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r10"}, ordering.RowIDs)

	ordering, err = r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortNumberDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r10", "r2", "r1"}, ordering.RowIDs)
}

func TestNumericSortParseFailuresSortLastBothDirections(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "bad", Value: "not-a-number", CreatedAt: at(1)},
		{RowID: "r30", Value: "30", CreatedAt: at(2)},
		{RowID: "r5", Value: "5", CreatedAt: at(3)},
		{RowID: "blank", Value: "", CreatedAt: at(4)},
	}}
	r := NewResolver(src)

	asc, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortNumberAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r5", "r30", "bad", "blank"}, asc.RowIDs)

	desc, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortNumberDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r30", "r5", "bad", "blank"}, desc.RowIDs)
}

func TestTextSortIsCaseInsensitive(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "cara", Value: "Cara", CreatedAt: at(1)},
		{RowID: "ann", Value: "ann", CreatedAt: at(2)},
		{RowID: "bob", Value: "Bob", CreatedAt: at(3)},
	}}
	r := NewResolver(src)

	ordering, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortTextAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob", "cara"}, ordering.RowIDs)

	ordering, err = r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortTextDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cara", "bob", "ann"}, ordering.RowIDs)
}

func TestTiesBreakByCreationTimeAscending(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "later", Value: "5", CreatedAt: at(9)},
		{RowID: "earlier", Value: "5", CreatedAt: at(1)},
	}}
	r := NewResolver(src)

	for _, order := range []model.SortOrder{model.SortNumberAsc, model.SortNumberDesc} {
		ordering, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
			{ColumnID: "c1", Order: order},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"earlier", "later"}, ordering.RowIDs, "order %s", order)
	}
}

func TestOnlyFirstSortConditionApplies(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "r2", Value: "2", CreatedAt: at(1)},
		{RowID: "r1", Value: "1", CreatedAt: at(2)},
	}}
	r := NewResolver(src)

	ordering, err := r.Resolve(context.Background(), "t1", []model.SortCondition{
		{ColumnID: "c1", Order: model.SortNumberAsc},
		{ColumnID: "c2", Order: "bogus"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ordering.RowIDs)
}

func TestCacheAvoidsRescanUntilInvalidated(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "r1", Value: "1", CreatedAt: at(1)},
	}}
	hits, misses := 0, 0
	r := NewResolver(src, WithCache(), WithCacheMetrics(
		func() { hits++ },
		func() { misses++ },
	))

	sorts := []model.SortCondition{{ColumnID: "c1", Order: model.SortNumberAsc}}

	_, err := r.Resolve(context.Background(), "t1", sorts)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "t1", sorts)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	r.InvalidateColumn("t1", "c1")
	_, err = r.Resolve(context.Background(), "t1", sorts)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	r.InvalidateTable("t1")
	_, err = r.Resolve(context.Background(), "t1", sorts)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCacheKeyedByOrder(t *testing.T) {
	src := &stubSource{cells: []ColumnCell{
		{RowID: "r1", Value: "1", CreatedAt: at(1)},
		{RowID: "r2", Value: "2", CreatedAt: at(2)},
	}}
	r := NewResolver(src, WithCache())

	asc, err := r.Resolve(context.Background(), "t1", []model.SortCondition{{ColumnID: "c1", Order: model.SortNumberAsc}})
	require.NoError(t, err)
	desc, err := r.Resolve(context.Background(), "t1", []model.SortCondition{{ColumnID: "c1", Order: model.SortNumberDesc}})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r2"}, asc.RowIDs)
	assert.Equal(t, []string{"r2", "r1"}, desc.RowIDs)
	assert.Equal(t, 2, src.calls)
}
