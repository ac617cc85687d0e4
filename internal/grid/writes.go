package grid

import (
	"context"
	"fmt"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/logging"
	"github.com/rbeccah/airtable/internal/model"
	"github.com/rbeccah/airtable/internal/seed"
)

// CreateBase creates a base owned by ownerID with one seeded table.
func (e *Engine) CreateBase(ctx context.Context, name, ownerID string) (*model.Base, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: base name", griderr.ErrMissingRequiredField)
	}
	base, err := e.store.CreateBase(ctx, name, ownerID)
	if err != nil {
		return nil, err
	}
	table, err := e.CreateTable(ctx, base.ID, "")
	if err != nil {
		return nil, err
	}
	base.Tables = append(base.Tables, *table)
	logging.FromContext(ctx).Info("base created", "base_id", base.ID, "owner_id", ownerID)
	return base, nil
}

// GetBase returns the base with its tables.
func (e *Engine) GetBase(ctx context.Context, baseID string) (*model.Base, error) {
	return e.store.GetBase(ctx, baseID)
}

// CreateTable creates a table in the base with the default column set, a
// default view, and a batch of seeded rows. An empty name gets the next
// "Table N" in sequence.
func (e *Engine) CreateTable(ctx context.Context, baseID, name string) (*model.Table, error) {
	if _, err := e.store.GetBase(ctx, baseID); err != nil {
		return nil, err
	}
	if name == "" {
		n, err := e.store.CountTables(ctx, baseID)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("Table %d", n+1)
	}

	table, err := e.store.CreateTable(ctx, baseID, name, seed.DefaultColumns())
	if err != nil {
		return nil, err
	}
	if _, err := e.store.CreateView(ctx, table.ID, "Grid view 1"); err != nil {
		return nil, err
	}
	if _, err := e.store.AddRows(ctx, table, seed.DefaultRowCount, e.defaultValue()); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("table created", "table_id", table.ID, "base_id", baseID, "name", name)
	return table, nil
}

// GetTable returns the table with its columns.
func (e *Engine) GetTable(ctx context.Context, tableID string) (*model.Table, error) {
	return e.store.GetTable(ctx, tableID)
}

// AddColumn appends a column to the table. Every existing row receives an
// empty cell for it, and every view of the table records it as visible.
// The backfilled cells are returned alongside the column, one per row.
func (e *Engine) AddColumn(ctx context.Context, tableID, name string, colType model.ColumnType) (*model.Column, []model.Cell, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("%w: column name", griderr.ErrMissingRequiredField)
	}
	switch colType {
	case model.ColumnTypeText, model.ColumnTypeNumber:
	default:
		return nil, nil, fmt.Errorf("%w: column type %q", griderr.ErrMissingRequiredField, colType)
	}
	col, cells, err := e.store.AddColumn(ctx, tableID, name, colType)
	if err != nil {
		return nil, nil, err
	}
	// Row count changed for no sort key, but cached orderings predate the
	// new column's cells, so drop everything for the table.
	e.resolver.InvalidateTable(tableID)
	return col, cells, nil
}

// AddRows appends numRows rows to the table, each with one cell per
// column populated by the default-value generator.
func (e *Engine) AddRows(ctx context.Context, tableID string, numRows int) ([]model.Row, error) {
	if numRows <= 0 {
		return nil, fmt.Errorf("%w: row count must be positive", griderr.ErrMissingRequiredField)
	}
	table, err := e.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.AddRows(ctx, table, numRows, e.defaultValue())
	if err != nil {
		return nil, err
	}
	e.resolver.InvalidateTable(tableID)
	logging.FromContext(ctx).Info("rows added", "table_id", tableID, "count", len(rows))
	return rows, nil
}

// UpdateCell overwrites a cell's value. Concurrent writes to the same
// cell resolve last-write-wins; no version check is performed.
func (e *Engine) UpdateCell(ctx context.Context, cellID, value string) (*model.Row, error) {
	cell, err := e.store.UpdateCell(ctx, cellID, value)
	if err != nil {
		return nil, err
	}
	row, err := e.store.GetRow(ctx, cell.RowID)
	if err != nil {
		return nil, err
	}
	e.resolver.InvalidateColumn(row.TableID, cell.ColumnID)
	normalizeCellOrder([]model.Row{*row})
	return row, nil
}

// CreateView creates a view on the table with no filters or sorts and
// all columns visible. An empty name gets the next "Grid view N".
func (e *Engine) CreateView(ctx context.Context, tableID, name string) (*model.View, error) {
	if _, err := e.store.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	if name == "" {
		n, err := e.store.CountViews(ctx, tableID)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("Grid view %d", n+1)
	}
	return e.store.CreateView(ctx, tableID, name)
}

// GetView returns the view with its filter, sort, and visibility state.
func (e *Engine) GetView(ctx context.Context, viewID string) (*model.View, error) {
	return e.store.GetView(ctx, viewID)
}

// ListViews lists the table's views.
func (e *Engine) ListViews(ctx context.Context, tableID string) ([]model.View, error) {
	if _, err := e.store.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	return e.store.ListViews(ctx, tableID)
}

// ReplaceFilters replaces the view's filter list wholesale. Conditions
// whose operator requires a value but carries a blank one are dropped
// rather than rejected; an unrecognized operator or column fails the
// whole update.
func (e *Engine) ReplaceFilters(ctx context.Context, viewID string, filters []model.FilterCondition) ([]model.FilterCondition, error) {
	view, err := e.store.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	table, err := e.store.GetTable(ctx, view.TableID)
	if err != nil {
		return nil, err
	}

	kept := make([]model.FilterCondition, 0, len(filters))
	for _, f := range filters {
		switch f.Operator {
		case model.FilterContains, model.FilterDoesNotContain, model.FilterIsEqualTo,
			model.FilterIsEmpty, model.FilterIsNotEmpty:
		default:
			return nil, fmt.Errorf("%w: operator %q", griderr.ErrInvalidFilterCondition, f.Operator)
		}
		if table.ColumnByID(f.ColumnID) == nil {
			return nil, fmt.Errorf("%w: %s", griderr.ErrColumnNotFound, f.ColumnID)
		}
		if f.Operator.RequiresValue() && f.Value == "" {
			continue
		}
		kept = append(kept, f)
	}
	return e.store.ReplaceFilters(ctx, viewID, kept)
}

// ReplaceSorts replaces the view's sort list wholesale. Any invalid
// order or unknown column fails the whole update; partial application
// would silently change which ordering cursors were issued under.
func (e *Engine) ReplaceSorts(ctx context.Context, viewID string, sorts []model.SortCondition) ([]model.SortCondition, error) {
	view, err := e.store.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	table, err := e.store.GetTable(ctx, view.TableID)
	if err != nil {
		return nil, err
	}
	for _, s := range sorts {
		if !s.Order.Valid() {
			return nil, fmt.Errorf("%w: sort order %q", griderr.ErrInvalidFilterCondition, s.Order)
		}
		if table.ColumnByID(s.ColumnID) == nil {
			return nil, fmt.Errorf("%w: %s", griderr.ErrColumnNotFound, s.ColumnID)
		}
	}
	return e.store.ReplaceSorts(ctx, viewID, sorts)
}

// ReplaceVisibility sets which columns are hidden in the view. Columns
// absent from hidden become visible.
func (e *Engine) ReplaceVisibility(ctx context.Context, viewID string, hidden map[string]bool) ([]model.ColumnVisibility, error) {
	view, err := e.store.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	table, err := e.store.GetTable(ctx, view.TableID)
	if err != nil {
		return nil, err
	}
	for colID := range hidden {
		if table.ColumnByID(colID) == nil {
			return nil, fmt.Errorf("%w: %s", griderr.ErrColumnNotFound, colID)
		}
	}
	return e.store.ReplaceVisibility(ctx, viewID, hidden)
}

func (e *Engine) defaultValue() func(col model.Column) string {
	if e.defaults != nil {
		return e.defaults
	}
	return seed.DefaultValue
}
