package httpapi

import (
	"time"

	"github.com/rbeccah/airtable/internal/grid"
	"github.com/rbeccah/airtable/internal/model"
)

// Wire shapes. Every response is wrapped in the success envelope; these
// are the payloads inside it.

type baseDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"ownerId"`
	CreatedAt time.Time  `json:"createdAt"`
	Tables    []tableDTO `json:"tables,omitempty"`
}

type tableDTO struct {
	ID        string      `json:"id"`
	BaseID    string      `json:"baseId"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	Columns   []columnDTO `json:"columns,omitempty"`
}

type columnDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type rowDTO struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Cells     []cellDTO `json:"cells"`
}

type cellDTO struct {
	ID       string `json:"id"`
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
	Value    string `json:"value"`
}

type pageDTO struct {
	Rows       []rowDTO `json:"rows"`
	NextCursor *string  `json:"nextCursor"`
}

type viewDTO struct {
	ID         string          `json:"id"`
	TableID    string          `json:"tableId"`
	Name       string          `json:"name"`
	Filters    []filterDTO     `json:"filters"`
	Sorts      []sortDTO       `json:"sorts"`
	Visibility []visibilityDTO `json:"visibility"`
}

type filterDTO struct {
	ID       string `json:"id,omitempty"`
	ColumnID string `json:"columnId"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

type sortDTO struct {
	ID       string `json:"id,omitempty"`
	ColumnID string `json:"columnId"`
	Order    string `json:"order"`
}

type visibilityDTO struct {
	ColumnID  string `json:"columnId"`
	IsVisible bool   `json:"isVisible"`
}

// Request bodies.

type createBaseRequest struct {
	Name string `json:"name"`
}

type createTableRequest struct {
	Name string `json:"name"`
}

type createViewRequest struct {
	Name string `json:"name"`
}

type addColumnRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type addRowsRequest struct {
	NumRows int `json:"numRows"`
}

type updateCellRequest struct {
	Value string `json:"value"`
}

type replaceFiltersRequest struct {
	Filters []filterDTO `json:"filters"`
}

type replaceSortsRequest struct {
	Sorts []sortDTO `json:"sorts"`
}

type replaceVisibilityRequest struct {
	Hidden map[string]bool `json:"hidden"`
}

func toBaseDTO(b *model.Base) baseDTO {
	out := baseDTO{ID: b.ID, Name: b.Name, OwnerID: b.OwnerID, CreatedAt: b.CreatedAt}
	for i := range b.Tables {
		out.Tables = append(out.Tables, toTableDTO(&b.Tables[i]))
	}
	return out
}

func toTableDTO(t *model.Table) tableDTO {
	out := tableDTO{ID: t.ID, BaseID: t.BaseID, Name: t.Name, CreatedAt: t.CreatedAt}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, toColumnDTO(c))
	}
	return out
}

func toColumnDTO(c model.Column) columnDTO {
	return columnDTO{ID: c.ID, Name: c.Name, Type: string(c.Type)}
}

// addColumnDTO pairs a new column with the empty cells backfilled into
// every existing row.
type addColumnDTO struct {
	Column columnDTO `json:"column"`
	Cells  []cellDTO `json:"cells"`
}

func toAddColumnDTO(c model.Column, cells []model.Cell) addColumnDTO {
	out := addColumnDTO{Column: toColumnDTO(c), Cells: []cellDTO{}}
	for _, cell := range cells {
		out.Cells = append(out.Cells, toCellDTO(cell))
	}
	return out
}

func toRowDTO(r model.Row) rowDTO {
	out := rowDTO{ID: r.ID, CreatedAt: r.CreatedAt, Cells: []cellDTO{}}
	for _, c := range r.Cells {
		out.Cells = append(out.Cells, toCellDTO(c))
	}
	return out
}

func toCellDTO(c model.Cell) cellDTO {
	return cellDTO{ID: c.ID, RowID: c.RowID, ColumnID: c.ColumnID, Value: c.Value}
}

func toPageDTO(p *grid.Page) pageDTO {
	out := pageDTO{Rows: []rowDTO{}, NextCursor: p.NextCursor}
	for _, row := range p.Rows {
		out.Rows = append(out.Rows, toRowDTO(row))
	}
	return out
}

func toViewDTO(v *model.View) viewDTO {
	out := viewDTO{
		ID: v.ID, TableID: v.TableID, Name: v.Name,
		Filters: []filterDTO{}, Sorts: []sortDTO{}, Visibility: []visibilityDTO{},
	}
	for _, f := range v.Filters {
		out.Filters = append(out.Filters, toFilterDTO(f))
	}
	for _, s := range v.Sorts {
		out.Sorts = append(out.Sorts, toSortDTO(s))
	}
	for _, vis := range v.Visibility {
		out.Visibility = append(out.Visibility, visibilityDTO{ColumnID: vis.ColumnID, IsVisible: vis.IsVisible})
	}
	return out
}

func toFilterDTO(f model.FilterCondition) filterDTO {
	return filterDTO{ID: f.ID, ColumnID: f.ColumnID, Operator: string(f.Operator), Value: f.Value}
}

func toSortDTO(s model.SortCondition) sortDTO {
	return sortDTO{ID: s.ID, ColumnID: s.ColumnID, Order: string(s.Order)}
}
