// Package model defines the grid schema entities shared by the storage
// layer and the view-application engine.
package model

import "time"

// ColumnType is the declared type of a column. Cell values are stored as
// text regardless of type; typed semantics (numeric sort, numeric compare)
// are a query-time concern.
type ColumnType string

const (
	ColumnTypeText   ColumnType = "Text"
	ColumnTypeNumber ColumnType = "Number"
)

// FilterOperator enumerates the supported filter conditions. The set is
// closed: anything else is rejected during predicate compilation.
type FilterOperator string

const (
	FilterContains       FilterOperator = "contains"
	FilterDoesNotContain FilterOperator = "does not contain"
	FilterIsEqualTo      FilterOperator = "is equal to"
	FilterIsEmpty        FilterOperator = "is empty"
	FilterIsNotEmpty     FilterOperator = "is not empty"
)

// RequiresValue reports whether the operator needs a comparison value.
// The empty/not-empty pair compares against the empty string implicitly.
func (op FilterOperator) RequiresValue() bool {
	switch op {
	case FilterIsEmpty, FilterIsNotEmpty:
		return false
	default:
		return true
	}
}

// SortOrder enumerates the supported sort directions. Which pair applies
// depends on the column type: A→Z / Z→A for Text, 1→9 / 9→1 for Number.
type SortOrder string

const (
	SortTextAsc    SortOrder = "A → Z"
	SortTextDesc   SortOrder = "Z → A"
	SortNumberAsc  SortOrder = "1 → 9"
	SortNumberDesc SortOrder = "9 → 1"
)

// Numeric reports whether the order compares parsed numbers rather than text.
func (o SortOrder) Numeric() bool {
	return o == SortNumberAsc || o == SortNumberDesc
}

// Descending reports whether the order reverses the natural comparison.
func (o SortOrder) Descending() bool {
	return o == SortTextDesc || o == SortNumberDesc
}

// Valid reports whether the order is one of the four recognized values.
func (o SortOrder) Valid() bool {
	switch o {
	case SortTextAsc, SortTextDesc, SortNumberAsc, SortNumberDesc:
		return true
	}
	return false
}

// Base is a workspace owning a set of tables.
type Base struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tables    []Table
}

// Table owns its columns and rows. Deleting a table deletes both.
type Table struct {
	ID        string
	BaseID    string
	Name      string
	CreatedAt time.Time
	Columns   []Column
}

// Column identity never changes; the display name is mutable and not unique.
type Column struct {
	ID      string
	TableID string
	Name    string
	Type    ColumnType
}

// Row carries its creation timestamp, which defines the stable default
// ordering, and exactly one cell per column of its table.
type Row struct {
	ID        string
	TableID   string
	CreatedAt time.Time
	Cells     []Cell
}

// Cell belongs jointly to a row and a column and stores its value as text.
type Cell struct {
	ID       string
	RowID    string
	ColumnID string
	Value    string
}

// View holds the filter, sort, and visibility state applied when reading a
// table through it.
type View struct {
	ID         string
	TableID    string
	Name       string
	Filters    []FilterCondition
	Sorts      []SortCondition
	Visibility []ColumnVisibility
}

// FilterCondition restricts rows by the value of one column's cell.
type FilterCondition struct {
	ID       string
	ViewID   string
	ColumnID string
	Operator FilterOperator
	Value    string
}

// SortCondition orders rows by one column's cell values. The stored shape
// is a list but only the first entry is applied; see the sorting package.
type SortCondition struct {
	ID       string
	ViewID   string
	ColumnID string
	Order    SortOrder
}

// ColumnVisibility marks a column hidden or visible within one view.
// A column with no record is treated as visible.
type ColumnVisibility struct {
	ViewID    string
	ColumnID  string
	IsVisible bool
}

// ColumnSpec describes a column to create alongside a table.
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// ColumnByID returns the table's column with the given id, or nil.
func (t Table) ColumnByID(id string) *Column {
	for i := range t.Columns {
		if t.Columns[i].ID == id {
			return &t.Columns[i]
		}
	}
	return nil
}

// CellByColumn returns the row's cell for the given column id, or nil.
// Rows hold exactly one cell per column, so this is a direct lookup.
func (r Row) CellByColumn(columnID string) *Cell {
	for i := range r.Cells {
		if r.Cells[i].ColumnID == columnID {
			return &r.Cells[i]
		}
	}
	return nil
}
