package grid

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
	"github.com/rbeccah/airtable/internal/predicate"
	"github.com/rbeccah/airtable/internal/sorting"
)

// memStore is an in-memory Store used to exercise the engine without a
// database. It mirrors the MySQL store's semantics: creation-order
// pagination, filter matching, delete-and-reinsert view updates.
type memStore struct {
	bases  map[string]*model.Base
	tables map[string]*model.Table
	views  map[string]*model.View
	// rows per table in creation order
	rows map[string][]*model.Row
	// cell id to owning row id
	cellRows map[string]string

	seq   int
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		bases:    make(map[string]*model.Base),
		tables:   make(map[string]*model.Table),
		views:    make(map[string]*model.View),
		rows:     make(map[string][]*model.Row),
		cellRows: make(map[string]string),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateBase(_ context.Context, name, ownerID string) (*model.Base, error) {
	base := &model.Base{ID: m.nextID("base"), Name: name, OwnerID: ownerID, CreatedAt: m.tick()}
	m.bases[base.ID] = base
	return copyBase(base), nil
}

func (m *memStore) GetBase(_ context.Context, baseID string) (*model.Base, error) {
	base, ok := m.bases[baseID]
	if !ok {
		return nil, griderr.ErrBaseNotFound
	}
	out := copyBase(base)
	for _, t := range m.tables {
		if t.BaseID == baseID {
			out.Tables = append(out.Tables, *copyTable(t))
		}
	}
	sort.Slice(out.Tables, func(i, j int) bool { return out.Tables[i].ID < out.Tables[j].ID })
	return out, nil
}

func (m *memStore) CountTables(_ context.Context, baseID string) (int, error) {
	n := 0
	for _, t := range m.tables {
		if t.BaseID == baseID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateTable(_ context.Context, baseID, name string, columns []model.ColumnSpec) (*model.Table, error) {
	table := &model.Table{ID: m.nextID("tbl"), BaseID: baseID, Name: name, CreatedAt: m.tick()}
	for _, spec := range columns {
		table.Columns = append(table.Columns, model.Column{
			ID: m.nextID("col"), TableID: table.ID, Name: spec.Name, Type: spec.Type,
		})
	}
	m.tables[table.ID] = table
	return copyTable(table), nil
}

func (m *memStore) GetTable(_ context.Context, tableID string) (*model.Table, error) {
	table, ok := m.tables[tableID]
	if !ok {
		return nil, griderr.ErrTableNotFound
	}
	return copyTable(table), nil
}

func (m *memStore) AddColumn(_ context.Context, tableID, name string, colType model.ColumnType) (*model.Column, []model.Cell, error) {
	table, ok := m.tables[tableID]
	if !ok {
		return nil, nil, griderr.ErrTableNotFound
	}
	col := model.Column{ID: m.nextID("col"), TableID: tableID, Name: name, Type: colType}
	table.Columns = append(table.Columns, col)

	var created []model.Cell
	for _, row := range m.rows[tableID] {
		cell := model.Cell{ID: m.nextID("cell"), RowID: row.ID, ColumnID: col.ID}
		row.Cells = append(row.Cells, cell)
		m.cellRows[cell.ID] = row.ID
		created = append(created, cell)
	}
	for _, view := range m.views {
		if view.TableID == tableID {
			view.Visibility = append(view.Visibility, model.ColumnVisibility{
				ViewID: view.ID, ColumnID: col.ID, IsVisible: true,
			})
		}
	}
	return &col, created, nil
}

func (m *memStore) GetRow(_ context.Context, rowID string) (*model.Row, error) {
	for _, rows := range m.rows {
		for _, row := range rows {
			if row.ID == rowID {
				return copyRow(row), nil
			}
		}
	}
	return nil, griderr.ErrRowNotFound
}

func (m *memStore) FetchRowPage(_ context.Context, tableID string, pred *predicate.Predicate, after *model.Row, limit int) ([]model.Row, error) {
	var out []model.Row
	passed := after == nil
	for _, row := range m.rows[tableID] {
		if !passed {
			if row.ID == after.ID {
				passed = true
			}
			continue
		}
		if !pred.Matches(*row) {
			continue
		}
		out = append(out, *copyRow(row))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListMatchingRowIDs(_ context.Context, tableID string, pred *predicate.Predicate) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, row := range m.rows[tableID] {
		if pred.Matches(*row) {
			out[row.ID] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) GetRowsByIDs(_ context.Context, ids []string) ([]model.Row, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []model.Row
	for _, rows := range m.rows {
		for _, row := range rows {
			if _, ok := want[row.ID]; ok {
				out = append(out, *copyRow(row))
			}
		}
	}
	return out, nil
}

func (m *memStore) AddRows(_ context.Context, table *model.Table, numRows int, defaultValue func(col model.Column) string) ([]model.Row, error) {
	var created []model.Row
	for i := 0; i < numRows; i++ {
		row := &model.Row{ID: m.nextID("row"), TableID: table.ID, CreatedAt: m.tick()}
		for _, col := range table.Columns {
			cell := model.Cell{ID: m.nextID("cell"), RowID: row.ID, ColumnID: col.ID, Value: defaultValue(col)}
			row.Cells = append(row.Cells, cell)
			m.cellRows[cell.ID] = row.ID
		}
		m.rows[table.ID] = append(m.rows[table.ID], row)
		created = append(created, *copyRow(row))
	}
	return created, nil
}

func (m *memStore) GetCell(_ context.Context, cellID string) (*model.Cell, error) {
	cell := m.findCell(cellID)
	if cell == nil {
		return nil, griderr.ErrCellNotFound
	}
	c := *cell
	return &c, nil
}

func (m *memStore) UpdateCell(_ context.Context, cellID, value string) (*model.Cell, error) {
	cell := m.findCell(cellID)
	if cell == nil {
		return nil, griderr.ErrCellNotFound
	}
	cell.Value = value
	c := *cell
	return &c, nil
}

func (m *memStore) findCell(cellID string) *model.Cell {
	rowID, ok := m.cellRows[cellID]
	if !ok {
		return nil
	}
	for _, rows := range m.rows {
		for _, row := range rows {
			if row.ID != rowID {
				continue
			}
			for i := range row.Cells {
				if row.Cells[i].ID == cellID {
					return &row.Cells[i]
				}
			}
		}
	}
	return nil
}

func (m *memStore) SearchCells(_ context.Context, tableID, search string) ([]model.Cell, error) {
	needle := strings.ToLower(search)
	var out []model.Cell
	for _, row := range m.rows[tableID] {
		for _, cell := range row.Cells {
			if strings.Contains(strings.ToLower(cell.Value), needle) {
				out = append(out, cell)
			}
		}
	}
	return out, nil
}

func (m *memStore) ColumnCells(_ context.Context, tableID, columnID string) ([]sorting.ColumnCell, error) {
	var out []sorting.ColumnCell
	for _, row := range m.rows[tableID] {
		for _, cell := range row.Cells {
			if cell.ColumnID == columnID {
				out = append(out, sorting.ColumnCell{RowID: row.ID, Value: cell.Value, CreatedAt: row.CreatedAt})
			}
		}
	}
	return out, nil
}

func (m *memStore) CountViews(_ context.Context, tableID string) (int, error) {
	n := 0
	for _, v := range m.views {
		if v.TableID == tableID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateView(_ context.Context, tableID, name string) (*model.View, error) {
	table, ok := m.tables[tableID]
	if !ok {
		return nil, griderr.ErrTableNotFound
	}
	view := &model.View{ID: m.nextID("view"), TableID: tableID, Name: name}
	for _, col := range table.Columns {
		view.Visibility = append(view.Visibility, model.ColumnVisibility{
			ViewID: view.ID, ColumnID: col.ID, IsVisible: true,
		})
	}
	m.views[view.ID] = view
	return copyView(view), nil
}

func (m *memStore) GetView(_ context.Context, viewID string) (*model.View, error) {
	view, ok := m.views[viewID]
	if !ok {
		return nil, griderr.ErrViewNotFound
	}
	return copyView(view), nil
}

func (m *memStore) ListViews(_ context.Context, tableID string) ([]model.View, error) {
	var out []model.View
	for _, v := range m.views {
		if v.TableID == tableID {
			out = append(out, *copyView(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ReplaceFilters(_ context.Context, viewID string, filters []model.FilterCondition) ([]model.FilterCondition, error) {
	view, ok := m.views[viewID]
	if !ok {
		return nil, griderr.ErrViewNotFound
	}
	view.Filters = nil
	for _, f := range filters {
		f.ID = m.nextID("flt")
		f.ViewID = viewID
		view.Filters = append(view.Filters, f)
	}
	return append([]model.FilterCondition(nil), view.Filters...), nil
}

func (m *memStore) ReplaceSorts(_ context.Context, viewID string, sorts []model.SortCondition) ([]model.SortCondition, error) {
	view, ok := m.views[viewID]
	if !ok {
		return nil, griderr.ErrViewNotFound
	}
	view.Sorts = nil
	for _, s := range sorts {
		s.ID = m.nextID("srt")
		s.ViewID = viewID
		view.Sorts = append(view.Sorts, s)
	}
	return append([]model.SortCondition(nil), view.Sorts...), nil
}

func (m *memStore) ReplaceVisibility(_ context.Context, viewID string, hidden map[string]bool) ([]model.ColumnVisibility, error) {
	view, ok := m.views[viewID]
	if !ok {
		return nil, griderr.ErrViewNotFound
	}
	table := m.tables[view.TableID]
	view.Visibility = nil
	for _, col := range table.Columns {
		view.Visibility = append(view.Visibility, model.ColumnVisibility{
			ViewID: viewID, ColumnID: col.ID, IsVisible: !hidden[col.ID],
		})
	}
	return append([]model.ColumnVisibility(nil), view.Visibility...), nil
}

// Copies keep the engine's in-place visibility masking from mutating the
// fake's canonical rows, matching the fresh slices a SQL scan returns.

func copyBase(b *model.Base) *model.Base {
	out := *b
	out.Tables = nil
	return &out
}

func copyTable(t *model.Table) *model.Table {
	out := *t
	out.Columns = append([]model.Column(nil), t.Columns...)
	return &out
}

func copyRow(r *model.Row) *model.Row {
	out := *r
	out.Cells = append([]model.Cell(nil), r.Cells...)
	return &out
}

func copyView(v *model.View) *model.View {
	out := *v
	out.Filters = append([]model.FilterCondition(nil), v.Filters...)
	out.Sorts = append([]model.SortCondition(nil), v.Sorts...)
	out.Visibility = append([]model.ColumnVisibility(nil), v.Visibility...)
	return &out
}
