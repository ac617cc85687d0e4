package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
	"github.com/rbeccah/airtable/internal/predicate"
)

// rowColumns is the projection used for all row reads.
var rowColumns = []string{"`grid_rows`.`id`", "`grid_rows`.`table_id`", "`grid_rows`.`created_at`"}

// GetRow loads a single row without its cells.
func (s *Store) GetRow(ctx context.Context, rowID string) (*model.Row, error) {
	query, args, err := psql.Select(rowColumns...).
		From("`grid_rows`").
		Where(sq.Eq{"`grid_rows`.`id`": rowID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get row", err)
	}

	var row model.Row
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&row.ID, &row.TableID, &row.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, griderr.ErrRowNotFound
		}
		return nil, griderr.Storage("get row", err)
	}
	return &row, nil
}

// FetchRowPage returns up to limit rows of the table in creation-time
// order, matching the predicate, positioned strictly after the given row.
// Cells are attached to every returned row.
func (s *Store) FetchRowPage(ctx context.Context, tableID string, pred *predicate.Predicate, after *model.Row, limit int) ([]model.Row, error) {
	builder := psql.Select(rowColumns...).
		From("`grid_rows`").
		Where(sq.Eq{"`grid_rows`.`table_id`": tableID})

	if cond := pred.Sqlizer(); cond != nil {
		builder = builder.Where(cond)
	}
	if after != nil {
		// Seek predicate in the resolved ordering: strictly after the
		// cursor row under (created_at, id) ascending.
		builder = builder.Where(sq.Expr(
			"(`grid_rows`.`created_at`, `grid_rows`.`id`) > (?, ?)",
			after.CreatedAt, after.ID,
		))
	}

	builder = builder.
		OrderBy("`grid_rows`.`created_at` ASC", "`grid_rows`.`id` ASC").
		Limit(uint64(limit))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, griderr.Storage("fetch row page", err)
	}

	rows, err := s.scanRows(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if err := s.attachCells(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMatchingRowIDs returns the ids of every row of the table matching
// the predicate. Used for value-sorted pagination, where ordering comes
// from a precomputed id list rather than the storage layer.
func (s *Store) ListMatchingRowIDs(ctx context.Context, tableID string, pred *predicate.Predicate) (map[string]struct{}, error) {
	builder := psql.Select("`grid_rows`.`id`").
		From("`grid_rows`").
		Where(sq.Eq{"`grid_rows`.`table_id`": tableID})
	if cond := pred.Sqlizer(); cond != nil {
		builder = builder.Where(cond)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, griderr.Storage("list matching rows", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("list matching rows", err)
	}
	defer result.Close()

	ids := make(map[string]struct{})
	for result.Next() {
		var id string
		if err := result.Scan(&id); err != nil {
			return nil, griderr.Storage("list matching rows", err)
		}
		ids[id] = struct{}{}
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("list matching rows", err)
	}
	return ids, nil
}

// GetRowsByIDs loads the given rows with their cells. The result order is
// unspecified; callers reorder against their own ordering.
func (s *Store) GetRowsByIDs(ctx context.Context, ids []string) ([]model.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := psql.Select(rowColumns...).
		From("`grid_rows`").
		Where(sq.Eq{"`grid_rows`.`id`": ids}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get rows", err)
	}

	rows, err := s.scanRows(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if err := s.attachCells(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AddRows bulk-creates numRows rows, each with one cell per column of the
// table. Inserts are chunked; every chunk commits rows together with their
// full cell sets so readers never observe a partially populated row.
// defaultValue decides each new cell's value; empty string is the fallback.
func (s *Store) AddRows(ctx context.Context, table *model.Table, numRows int, defaultValue func(col model.Column) string) ([]model.Row, error) {
	if numRows <= 0 {
		return nil, nil
	}
	if defaultValue == nil {
		defaultValue = func(model.Column) string { return "" }
	}

	created := make([]model.Row, 0, numRows)
	for _, size := range chunked(numRows) {
		chunk := make([]model.Row, size)
		for i := range chunk {
			row := model.Row{
				ID:        s.newID(),
				TableID:   table.ID,
				CreatedAt: s.now(),
			}
			for _, col := range table.Columns {
				row.Cells = append(row.Cells, model.Cell{
					ID:       s.newID(),
					RowID:    row.ID,
					ColumnID: col.ID,
					Value:    defaultValue(col),
				})
			}
			chunk[i] = row
		}

		err := s.runTx(ctx, "add rows", func(tx *sql.Tx) error {
			rowInsert := psql.Insert("`grid_rows`").Columns("`id`", "`table_id`", "`created_at`")
			for _, row := range chunk {
				rowInsert = rowInsert.Values(row.ID, row.TableID, row.CreatedAt)
			}
			query, args, err := rowInsert.ToSql()
			if err != nil {
				return griderr.Storage("add rows", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return griderr.Storage("add rows", err)
			}

			if len(table.Columns) == 0 {
				return nil
			}
			cellInsert := psql.Insert("`cells`").Columns("`id`", "`row_id`", "`column_id`", "`value`")
			for _, row := range chunk {
				for _, cell := range row.Cells {
					cellInsert = cellInsert.Values(cell.ID, cell.RowID, cell.ColumnID, cell.Value)
				}
			}
			query, args, err = cellInsert.ToSql()
			if err != nil {
				return griderr.Storage("add rows", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return griderr.Storage("add rows", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		created = append(created, chunk...)
	}
	return created, nil
}

func (s *Store) scanRows(ctx context.Context, query string, args []interface{}) ([]model.Row, error) {
	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("query rows", err)
	}
	defer result.Close()

	var rows []model.Row
	for result.Next() {
		var row model.Row
		var createdAt time.Time
		if err := result.Scan(&row.ID, &row.TableID, &createdAt); err != nil {
			return nil, griderr.Storage("scan row", err)
		}
		row.CreatedAt = createdAt
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("query rows", err)
	}
	return rows, nil
}

// attachCells loads the full cell set for each row in place.
func (s *Store) attachCells(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]*model.Row, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		index[rows[i].ID] = &rows[i]
	}

	query, args, err := psql.Select("`id`", "`row_id`", "`column_id`", "`value`").
		From("`cells`").
		Where(sq.Eq{"`row_id`": ids}).
		ToSql()
	if err != nil {
		return griderr.Storage("load cells", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return griderr.Storage("load cells", err)
	}
	defer result.Close()

	for result.Next() {
		var cell model.Cell
		if err := result.Scan(&cell.ID, &cell.RowID, &cell.ColumnID, &cell.Value); err != nil {
			return griderr.Storage("load cells", err)
		}
		if row, ok := index[cell.RowID]; ok {
			row.Cells = append(row.Cells, cell)
		}
	}
	if err := result.Err(); err != nil {
		return griderr.Storage("load cells", err)
	}
	return nil
}
