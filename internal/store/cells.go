package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
	"github.com/rbeccah/airtable/internal/sorting"
)

// GetCell loads a single cell.
func (s *Store) GetCell(ctx context.Context, cellID string) (*model.Cell, error) {
	query, args, err := psql.Select("`id`", "`row_id`", "`column_id`", "`value`").
		From("`cells`").
		Where(sq.Eq{"`id`": cellID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get cell", err)
	}

	var cell model.Cell
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&cell.ID, &cell.RowID, &cell.ColumnID, &cell.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, griderr.ErrCellNotFound
		}
		return nil, griderr.Storage("get cell", err)
	}
	return &cell, nil
}

// UpdateCell sets a cell's value. Concurrent writes to the same cell are
// serialized by the database's row-level update; last write wins.
func (s *Store) UpdateCell(ctx context.Context, cellID, value string) (*model.Cell, error) {
	cell, err := s.GetCell(ctx, cellID)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Update("`cells`").
		Set("`value`", value).
		Where(sq.Eq{"`id`": cellID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("update cell", err)
	}
	if _, err := s.exec.ExecContext(ctx, query, args...); err != nil {
		return nil, griderr.Storage("update cell", err)
	}

	cell.Value = value
	return cell, nil
}

// ColumnCells returns every cell of one column joined to its row's
// creation time. This feeds the sort resolver's value scan.
func (s *Store) ColumnCells(ctx context.Context, tableID, columnID string) ([]sorting.ColumnCell, error) {
	query, args, err := psql.Select("`cells`.`row_id`", "`cells`.`value`", "`grid_rows`.`created_at`").
		From("`cells`").
		Join("`grid_rows` ON `grid_rows`.`id` = `cells`.`row_id`").
		Where(sq.Eq{"`grid_rows`.`table_id`": tableID}).
		Where(sq.Eq{"`cells`.`column_id`": columnID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("column cells", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("column cells", err)
	}
	defer result.Close()

	var cells []sorting.ColumnCell
	for result.Next() {
		var cell sorting.ColumnCell
		if err := result.Scan(&cell.RowID, &cell.Value, &cell.CreatedAt); err != nil {
			return nil, griderr.Storage("column cells", err)
		}
		cells = append(cells, cell)
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("column cells", err)
	}
	return cells, nil
}

// SearchCells returns every cell of the table whose value contains the
// query as a case-insensitive substring.
func (s *Store) SearchCells(ctx context.Context, tableID, search string) ([]model.Cell, error) {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(search)) + "%"

	query, args, err := psql.Select("`cells`.`id`", "`cells`.`row_id`", "`cells`.`column_id`", "`cells`.`value`").
		From("`cells`").
		Join("`grid_rows` ON `grid_rows`.`id` = `cells`.`row_id`").
		Where(sq.Eq{"`grid_rows`.`table_id`": tableID}).
		Where(sq.Expr("LOWER(`cells`.`value`) LIKE ?", pattern)).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("search cells", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("search cells", err)
	}
	defer result.Close()

	var cells []model.Cell
	for result.Next() {
		var cell model.Cell
		if err := result.Scan(&cell.ID, &cell.RowID, &cell.ColumnID, &cell.Value); err != nil {
			return nil, griderr.Storage("search cells", err)
		}
		cells = append(cells, cell)
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("search cells", err)
	}
	return cells, nil
}
