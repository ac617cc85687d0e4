// Package grid is the view-application and paginated-retrieval engine.
// It composes the predicate compiler, sort resolver, visibility filter,
// and cursor discipline into the page and search operations the HTTP
// layer exposes.
package grid

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rbeccah/airtable/internal/cursor"
	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/logging"
	"github.com/rbeccah/airtable/internal/model"
	"github.com/rbeccah/airtable/internal/predicate"
	"github.com/rbeccah/airtable/internal/sorting"
)

const (
	// DefaultPageLimit is the page size used when the caller omits one.
	DefaultPageLimit = 50
	// MaxPageLimit caps the page size.
	MaxPageLimit = 100
)

// Store is the persistence contract the engine runs against. The MySQL
// implementation lives in internal/store; tests substitute an in-memory
// fake.
type Store interface {
	sorting.CellSource

	CreateBase(ctx context.Context, name, ownerID string) (*model.Base, error)
	GetBase(ctx context.Context, baseID string) (*model.Base, error)

	CountTables(ctx context.Context, baseID string) (int, error)
	CreateTable(ctx context.Context, baseID, name string, columns []model.ColumnSpec) (*model.Table, error)
	GetTable(ctx context.Context, tableID string) (*model.Table, error)
	AddColumn(ctx context.Context, tableID, name string, colType model.ColumnType) (*model.Column, []model.Cell, error)

	GetRow(ctx context.Context, rowID string) (*model.Row, error)
	FetchRowPage(ctx context.Context, tableID string, pred *predicate.Predicate, after *model.Row, limit int) ([]model.Row, error)
	ListMatchingRowIDs(ctx context.Context, tableID string, pred *predicate.Predicate) (map[string]struct{}, error)
	GetRowsByIDs(ctx context.Context, ids []string) ([]model.Row, error)
	AddRows(ctx context.Context, table *model.Table, numRows int, defaultValue func(col model.Column) string) ([]model.Row, error)

	GetCell(ctx context.Context, cellID string) (*model.Cell, error)
	UpdateCell(ctx context.Context, cellID, value string) (*model.Cell, error)
	SearchCells(ctx context.Context, tableID, search string) ([]model.Cell, error)

	CountViews(ctx context.Context, tableID string) (int, error)
	CreateView(ctx context.Context, tableID, name string) (*model.View, error)
	GetView(ctx context.Context, viewID string) (*model.View, error)
	ListViews(ctx context.Context, tableID string) ([]model.View, error)
	ReplaceFilters(ctx context.Context, viewID string, filters []model.FilterCondition) ([]model.FilterCondition, error)
	ReplaceSorts(ctx context.Context, viewID string, sorts []model.SortCondition) ([]model.SortCondition, error)
	ReplaceVisibility(ctx context.Context, viewID string, hidden map[string]bool) ([]model.ColumnVisibility, error)
}

// Metrics receives engine-level measurements. The observability package
// provides a Prometheus-backed implementation.
type Metrics interface {
	ObservePageFetch(duration time.Duration, rows int)
	ObserveSearch(duration time.Duration, matches int)
}

type nopMetrics struct{}

func (nopMetrics) ObservePageFetch(time.Duration, int) {}
func (nopMetrics) ObserveSearch(time.Duration, int)    {}

// Engine exposes the grid operations.
type Engine struct {
	store    Store
	resolver *sorting.Resolver
	metrics  Metrics
	defaults func(col model.Column) string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMetrics attaches engine metrics.
func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithDefaultValues overrides the default-value generator used when rows
// are created. Tests use this for determinism.
func WithDefaultValues(fn func(col model.Column) string) EngineOption {
	return func(e *Engine) { e.defaults = fn }
}

// NewEngine creates an engine over store, resolving sort orderings with
// resolver.
func NewEngine(store Store, resolver *sorting.Resolver, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		resolver: resolver,
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Page is one slice of a view's rows. NextCursor is nil at end of data.
type Page struct {
	Rows       []model.Row
	NextCursor *string
}

// GetPage returns one filtered, ordered, column-masked page of the view's
// rows. Repeated calls with the same arguments against unchanged data
// return the same page.
func (e *Engine) GetPage(ctx context.Context, tableID, viewID string, rawCursor *string, limit int) (*Page, error) {
	start := time.Now()

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	view, err := e.store.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	if view.TableID != tableID {
		return nil, griderr.ErrViewNotFound
	}

	pred, err := predicate.Compile(view.Filters)
	if err != nil {
		return nil, err
	}

	// Cursors are bound to the filter+sort state they were issued under;
	// a stale cursor forces the client to restart from the beginning.
	stateKey := cursor.StateKey(view.ID, view.Filters, view.Sorts)
	var cursorRowID string
	if rawCursor != nil && *rawCursor != "" {
		rowID, key, err := cursor.Decode(*rawCursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", griderr.ErrInvalidCursor, err)
		}
		if err := cursor.Validate(stateKey, key); err != nil {
			return nil, fmt.Errorf("%w: %v", griderr.ErrInvalidCursor, err)
		}
		cursorRowID = rowID
	}

	ordering, err := e.resolver.Resolve(ctx, tableID, view.Sorts)
	if err != nil {
		return nil, err
	}

	// Fetch limit+1 rows in the resolved ordering so the presence of a
	// following page is known without a count query.
	var rows []model.Row
	if ordering.Native {
		rows, err = e.fetchNativePage(ctx, tableID, pred, cursorRowID, limit+1)
	} else {
		rows, err = e.fetchOrderedPage(ctx, pred, ordering.RowIDs, tableID, cursorRowID, limit+1)
	}
	if err != nil {
		return nil, err
	}

	// Trim the probe row and point the cursor at the last returned row,
	// never the trimmed one, so the boundary row is neither skipped nor
	// duplicated.
	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		encoded := cursor.Encode(rows[limit-1].ID, stateKey)
		nextCursor = &encoded
	}

	applyVisibility(rows, view.Visibility)
	normalizeCellOrder(rows)

	logging.FromContext(ctx).Debug("page fetched",
		"table_id", tableID,
		"view_id", viewID,
		"rows", len(rows),
		"has_next", nextCursor != nil,
	)
	e.metrics.ObservePageFetch(time.Since(start), len(rows))

	return &Page{Rows: rows, NextCursor: nextCursor}, nil
}

// fetchNativePage reads rows in creation-time order directly from storage.
func (e *Engine) fetchNativePage(ctx context.Context, tableID string, pred *predicate.Predicate, cursorRowID string, limit int) ([]model.Row, error) {
	var after *model.Row
	if cursorRowID != "" {
		row, err := e.store.GetRow(ctx, cursorRowID)
		if err != nil {
			if griderr.NotFound(err) {
				return nil, fmt.Errorf("%w: cursor row no longer exists", griderr.ErrInvalidCursor)
			}
			return nil, err
		}
		after = row
	}
	return e.store.FetchRowPage(ctx, tableID, pred, after, limit)
}

// fetchOrderedPage paginates a value-sorted ordering by slicing the
// precomputed id list at the cursor position, since storage cannot
// natively order by an externally computed list.
func (e *Engine) fetchOrderedPage(ctx context.Context, pred *predicate.Predicate, orderedIDs []string, tableID, cursorRowID string, limit int) ([]model.Row, error) {
	matching, err := e.store.ListMatchingRowIDs(ctx, tableID, pred)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(matching))
	for _, id := range orderedIDs {
		if _, ok := matching[id]; ok {
			filtered = append(filtered, id)
		}
	}

	start := 0
	if cursorRowID != "" {
		pos := -1
		for i, id := range filtered {
			if id == cursorRowID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%w: cursor row not in current ordering", griderr.ErrInvalidCursor)
		}
		start = pos + 1
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	pageIDs := filtered[start:end]
	if len(pageIDs) == 0 {
		return nil, nil
	}

	rows, err := e.store.GetRowsByIDs(ctx, pageIDs)
	if err != nil {
		return nil, err
	}

	// Reorder the loaded rows to the slice order.
	byID := make(map[string]model.Row, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]model.Row, 0, len(pageIDs))
	for _, id := range pageIDs {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// Search returns every cell of the table whose value contains the query
// as a case-insensitive substring. A blank query returns an empty result,
// not an error. Search is independent of any view's filter, sort, or
// visibility state.
func (e *Engine) Search(ctx context.Context, tableID, query string) ([]model.Cell, error) {
	start := time.Now()

	if isBlank(query) {
		return nil, nil
	}
	if _, err := e.store.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	cells, err := e.store.SearchCells(ctx, tableID, query)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveSearch(time.Since(start), len(cells))
	return cells, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// applyVisibility strips cells whose column is marked not-visible from
// each row. A column with no record stays visible. Row membership never
// changes; filters saw the full cell set before this runs.
func applyVisibility(rows []model.Row, visibility []model.ColumnVisibility) {
	hidden := make(map[string]struct{})
	for _, vis := range visibility {
		if !vis.IsVisible {
			hidden[vis.ColumnID] = struct{}{}
		}
	}
	if len(hidden) == 0 {
		return
	}
	for i := range rows {
		kept := rows[i].Cells[:0]
		for _, cell := range rows[i].Cells {
			if _, ok := hidden[cell.ColumnID]; !ok {
				kept = append(kept, cell)
			}
		}
		rows[i].Cells = kept
	}
}

// normalizeCellOrder sorts each row's cells by column id so identical
// requests produce identical pages regardless of storage scan order.
func normalizeCellOrder(rows []model.Row) {
	for i := range rows {
		cells := rows[i].Cells
		sort.Slice(cells, func(a, b int) bool {
			return cells[a].ColumnID < cells[b].ColumnID
		})
	}
}
