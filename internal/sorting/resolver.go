// Package sorting resolves a view's sort conditions into a concrete row
// ordering. The default ordering (no sort) is creation time ascending and
// executes natively in storage; a value sort scans the target column's
// cells and produces an explicit row-id list used downstream instead.
package sorting

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rbeccah/airtable/internal/model"
)

// ColumnCell is one cell of the sorted column joined back to row identity.
type ColumnCell struct {
	RowID     string
	Value     string
	CreatedAt time.Time
}

// CellSource fetches every cell of one column, each with its row id and the
// row's creation time for tie-breaking.
type CellSource interface {
	ColumnCells(ctx context.Context, tableID, columnID string) ([]ColumnCell, error)
}

// RowOrdering is the resolved ordering for a page request. When Native is
// true the storage layer orders by creation time itself; otherwise RowIDs
// holds the complete explicit ordering.
type RowOrdering struct {
	Native bool
	RowIDs []string
}

// Resolver turns sort conditions into row orderings, optionally caching the
// scan per (table, column, order). The cache is an optimization only:
// results are identical with it disabled, just slower.
type Resolver struct {
	source CellSource
	cache  *orderCache

	onCacheHit  func()
	onCacheMiss func()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables caching of value-sort scans.
func WithCache() Option {
	return func(r *Resolver) {
		r.cache = newOrderCache()
	}
}

// WithCacheMetrics registers callbacks invoked on cache hits and misses.
func WithCacheMetrics(hit, miss func()) Option {
	return func(r *Resolver) {
		r.onCacheHit = hit
		r.onCacheMiss = miss
	}
}

// NewResolver creates a resolver reading cell values from source.
func NewResolver(source CellSource, opts ...Option) *Resolver {
	r := &Resolver{source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve determines the row ordering for the given sort conditions.
// Only the first condition is honored; the stored shape is a list but
// multi-level sort is not implemented.
func (r *Resolver) Resolve(ctx context.Context, tableID string, sorts []model.SortCondition) (RowOrdering, error) {
	if len(sorts) == 0 {
		return RowOrdering{Native: true}, nil
	}

	s := sorts[0]
	if !s.Order.Valid() {
		return RowOrdering{}, fmt.Errorf("unrecognized sort order %q", s.Order)
	}

	if r.cache != nil {
		if ids, ok := r.cache.get(tableID, s.ColumnID, s.Order); ok {
			if r.onCacheHit != nil {
				r.onCacheHit()
			}
			return RowOrdering{RowIDs: ids}, nil
		}
		if r.onCacheMiss != nil {
			r.onCacheMiss()
		}
	}

	cells, err := r.source.ColumnCells(ctx, tableID, s.ColumnID)
	if err != nil {
		return RowOrdering{}, err
	}

	ids := orderRowIDs(cells, s.Order)
	if r.cache != nil {
		r.cache.put(tableID, s.ColumnID, s.Order, ids)
	}
	return RowOrdering{RowIDs: ids}, nil
}

// InvalidateColumn drops cached orderings for one column, called on any
// cell write to that column.
func (r *Resolver) InvalidateColumn(tableID, columnID string) {
	if r.cache != nil {
		r.cache.invalidateColumn(tableID, columnID)
	}
}

// InvalidateTable drops cached orderings for a whole table, called when
// rows or columns are added.
func (r *Resolver) InvalidateTable(tableID string) {
	if r.cache != nil {
		r.cache.invalidateTable(tableID)
	}
}

// orderRowIDs sorts the column's cells and returns the row ids in order.
// Numeric orders compare parsed values; rows whose value fails to parse
// sort last regardless of direction, keeping the ordering total. Ties are
// broken by creation time ascending, then row id, for stability.
func orderRowIDs(cells []ColumnCell, order model.SortOrder) []string {
	type entry struct {
		cell   ColumnCell
		num    float64
		parsed bool
		folded string
	}

	entries := make([]entry, len(cells))
	for i, c := range cells {
		e := entry{cell: c}
		if order.Numeric() {
			n, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
			e.num, e.parsed = n, err == nil
		} else {
			e.folded = strings.ToLower(c.Value)
		}
		entries[i] = e
	}

	desc := order.Descending()
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]

		if order.Numeric() {
			// Unparseable values go last under both directions.
			if a.parsed != b.parsed {
				return a.parsed
			}
			if a.parsed && a.num != b.num {
				if desc {
					return a.num > b.num
				}
				return a.num < b.num
			}
		} else {
			if a.folded != b.folded {
				if desc {
					return a.folded > b.folded
				}
				return a.folded < b.folded
			}
			if a.cell.Value != b.cell.Value {
				if desc {
					return a.cell.Value > b.cell.Value
				}
				return a.cell.Value < b.cell.Value
			}
		}

		if !a.cell.CreatedAt.Equal(b.cell.CreatedAt) {
			return a.cell.CreatedAt.Before(b.cell.CreatedAt)
		}
		return a.cell.RowID < b.cell.RowID
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.cell.RowID
	}
	return ids
}
