// Package httpapi exposes the grid engine over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rbeccah/airtable/internal/grid"
	"github.com/rbeccah/airtable/internal/model"
)

// userIDHeader identifies the caller on base creation. There is no auth;
// the header is trusted as-is.
const userIDHeader = "X-User-ID"

// Grid is the engine surface the handlers need.
type Grid interface {
	CreateBase(ctx context.Context, name, ownerID string) (*model.Base, error)
	GetBase(ctx context.Context, baseID string) (*model.Base, error)
	CreateTable(ctx context.Context, baseID, name string) (*model.Table, error)
	GetTable(ctx context.Context, tableID string) (*model.Table, error)
	AddColumn(ctx context.Context, tableID, name string, colType model.ColumnType) (*model.Column, []model.Cell, error)
	AddRows(ctx context.Context, tableID string, numRows int) ([]model.Row, error)
	GetPage(ctx context.Context, tableID, viewID string, cursor *string, limit int) (*grid.Page, error)
	Search(ctx context.Context, tableID, query string) ([]model.Cell, error)
	UpdateCell(ctx context.Context, cellID, value string) (*model.Row, error)
	CreateView(ctx context.Context, tableID, name string) (*model.View, error)
	GetView(ctx context.Context, viewID string) (*model.View, error)
	ListViews(ctx context.Context, tableID string) ([]model.View, error)
	ReplaceFilters(ctx context.Context, viewID string, filters []model.FilterCondition) ([]model.FilterCondition, error)
	ReplaceSorts(ctx context.Context, viewID string, sorts []model.SortCondition) ([]model.SortCondition, error)
	ReplaceVisibility(ctx context.Context, viewID string, hidden map[string]bool) ([]model.ColumnVisibility, error)
}

// Handlers holds the HTTP handlers for the grid API.
type Handlers struct {
	grid Grid
}

// NewHandlers creates a Handlers instance over the engine.
func NewHandlers(g Grid) *Handlers {
	return &Handlers{grid: g}
}

func (h *Handlers) CreateBase(w http.ResponseWriter, r *http.Request) {
	var req createBaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ownerID := r.Header.Get(userIDHeader)
	if ownerID == "" {
		writeError(r.Context(), w, &badRequestError{msg: "missing " + userIDHeader + " header"})
		return
	}
	base, err := h.grid.CreateBase(r.Context(), req.Name, ownerID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toBaseDTO(base))
}

func (h *Handlers) GetBase(w http.ResponseWriter, r *http.Request) {
	base, err := h.grid.GetBase(r.Context(), chi.URLParam(r, "baseID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBaseDTO(base))
}

func (h *Handlers) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	table, err := h.grid.CreateTable(r.Context(), chi.URLParam(r, "baseID"), req.Name)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toTableDTO(table))
}

func (h *Handlers) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.grid.GetTable(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTableDTO(table))
}

func (h *Handlers) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	col, cells, err := h.grid.AddColumn(r.Context(), chi.URLParam(r, "tableID"), req.Name, model.ColumnType(req.Type))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toAddColumnDTO(*col, cells))
}

func (h *Handlers) AddRows(w http.ResponseWriter, r *http.Request) {
	var req addRowsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	rows, err := h.grid.AddRows(r.Context(), chi.URLParam(r, "tableID"), req.NumRows)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]rowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRowDTO(row))
	}
	writeSuccess(w, http.StatusCreated, out)
}

func (h *Handlers) GetRows(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	viewID := r.URL.Query().Get("viewId")
	if viewID == "" {
		writeError(r.Context(), w, &badRequestError{msg: "missing viewId query parameter"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(r.Context(), w, &badRequestError{msg: "invalid limit: " + raw})
			return
		}
		limit = n
	}

	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}

	page, err := h.grid.GetPage(r.Context(), tableID, viewID, cursor, limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPageDTO(page))
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	cells, err := h.grid.Search(r.Context(), chi.URLParam(r, "tableID"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]cellDTO, 0, len(cells))
	for _, cell := range cells {
		out = append(out, toCellDTO(cell))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handlers) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req updateCellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	row, err := h.grid.UpdateCell(r.Context(), chi.URLParam(r, "cellID"), req.Value)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toRowDTO(*row))
}

func (h *Handlers) CreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	view, err := h.grid.CreateView(r.Context(), chi.URLParam(r, "tableID"), req.Name)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toViewDTO(view))
}

func (h *Handlers) ListViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.grid.ListViews(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]viewDTO, 0, len(views))
	for i := range views {
		out = append(out, toViewDTO(&views[i]))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handlers) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.grid.GetView(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toViewDTO(view))
}

func (h *Handlers) ReplaceFilters(w http.ResponseWriter, r *http.Request) {
	var req replaceFiltersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	filters := make([]model.FilterCondition, 0, len(req.Filters))
	for _, f := range req.Filters {
		filters = append(filters, model.FilterCondition{
			ColumnID: f.ColumnID,
			Operator: model.FilterOperator(f.Operator),
			Value:    f.Value,
		})
	}
	saved, err := h.grid.ReplaceFilters(r.Context(), chi.URLParam(r, "viewID"), filters)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]filterDTO, 0, len(saved))
	for _, f := range saved {
		out = append(out, toFilterDTO(f))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handlers) ReplaceSorts(w http.ResponseWriter, r *http.Request) {
	var req replaceSortsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	sorts := make([]model.SortCondition, 0, len(req.Sorts))
	for _, s := range req.Sorts {
		sorts = append(sorts, model.SortCondition{
			ColumnID: s.ColumnID,
			Order:    model.SortOrder(s.Order),
		})
	}
	saved, err := h.grid.ReplaceSorts(r.Context(), chi.URLParam(r, "viewID"), sorts)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]sortDTO, 0, len(saved))
	for _, s := range saved {
		out = append(out, toSortDTO(s))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handlers) ReplaceVisibility(w http.ResponseWriter, r *http.Request) {
	var req replaceVisibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saved, err := h.grid.ReplaceVisibility(r.Context(), chi.URLParam(r, "viewID"), req.Hidden)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]visibilityDTO, 0, len(saved))
	for _, vis := range saved {
		out = append(out, visibilityDTO{ColumnID: vis.ColumnID, IsVisible: vis.IsVisible})
	}
	writeSuccess(w, http.StatusOK, out)
}
