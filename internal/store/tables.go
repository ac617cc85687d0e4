package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
)

// CreateBase creates an empty base.
func (s *Store) CreateBase(ctx context.Context, name, ownerID string) (*model.Base, error) {
	base := &model.Base{
		ID:        s.newID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	query, args, err := psql.Insert("`bases`").
		Columns("`id`", "`name`", "`owner_id`", "`created_at`", "`updated_at`").
		Values(base.ID, base.Name, base.OwnerID, base.CreatedAt, base.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("create base", err)
	}
	if _, err := s.exec.ExecContext(ctx, query, args...); err != nil {
		return nil, griderr.Storage("create base", err)
	}
	return base, nil
}

// GetBase loads a base without its tables.
func (s *Store) GetBase(ctx context.Context, baseID string) (*model.Base, error) {
	query, args, err := psql.Select("`id`", "`name`", "`owner_id`", "`created_at`", "`updated_at`").
		From("`bases`").
		Where(sq.Eq{"`id`": baseID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get base", err)
	}

	var base model.Base
	err = s.exec.QueryRowContext(ctx, query, args...).
		Scan(&base.ID, &base.Name, &base.OwnerID, &base.CreatedAt, &base.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, griderr.ErrBaseNotFound
		}
		return nil, griderr.Storage("get base", err)
	}
	return &base, nil
}

// CountTables returns the number of tables in a base, used for default
// table naming ("Table N").
func (s *Store) CountTables(ctx context.Context, baseID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("`grid_tables`").
		Where(sq.Eq{"`base_id`": baseID}).
		ToSql()
	if err != nil {
		return 0, griderr.Storage("count tables", err)
	}
	var count int
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, griderr.Storage("count tables", err)
	}
	return count, nil
}

// CreateTable creates a table and its initial columns in one transaction.
func (s *Store) CreateTable(ctx context.Context, baseID, name string, columns []model.ColumnSpec) (*model.Table, error) {
	table := &model.Table{
		ID:        s.newID(),
		BaseID:    baseID,
		Name:      name,
		CreatedAt: s.now(),
	}
	for _, spec := range columns {
		table.Columns = append(table.Columns, model.Column{
			ID:      s.newID(),
			TableID: table.ID,
			Name:    spec.Name,
			Type:    spec.Type,
		})
	}

	err := s.runTx(ctx, "create table", func(tx *sql.Tx) error {
		query, args, err := psql.Insert("`grid_tables`").
			Columns("`id`", "`base_id`", "`name`", "`created_at`").
			Values(table.ID, table.BaseID, table.Name, table.CreatedAt).
			ToSql()
		if err != nil {
			return griderr.Storage("create table", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("create table", err)
		}

		if len(table.Columns) == 0 {
			return nil
		}
		colInsert := psql.Insert("`grid_columns`").Columns("`id`", "`table_id`", "`name`", "`type`")
		for _, col := range table.Columns {
			colInsert = colInsert.Values(col.ID, col.TableID, col.Name, col.Type)
		}
		query, args, err = colInsert.ToSql()
		if err != nil {
			return griderr.Storage("create table", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("create table", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// GetTable loads a table with its column definitions.
func (s *Store) GetTable(ctx context.Context, tableID string) (*model.Table, error) {
	query, args, err := psql.Select("`id`", "`base_id`", "`name`", "`created_at`").
		From("`grid_tables`").
		Where(sq.Eq{"`id`": tableID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get table", err)
	}

	var table model.Table
	err = s.exec.QueryRowContext(ctx, query, args...).
		Scan(&table.ID, &table.BaseID, &table.Name, &table.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, griderr.ErrTableNotFound
		}
		return nil, griderr.Storage("get table", err)
	}

	columns, err := s.tableColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}
	table.Columns = columns
	return &table, nil
}

func (s *Store) tableColumns(ctx context.Context, tableID string) ([]model.Column, error) {
	query, args, err := psql.Select("`id`", "`table_id`", "`name`", "`type`").
		From("`grid_columns`").
		Where(sq.Eq{"`table_id`": tableID}).
		OrderBy("`seq` ASC").
		ToSql()
	if err != nil {
		return nil, griderr.Storage("list columns", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("list columns", err)
	}
	defer result.Close()

	var columns []model.Column
	for result.Next() {
		var col model.Column
		if err := result.Scan(&col.ID, &col.TableID, &col.Name, &col.Type); err != nil {
			return nil, griderr.Storage("list columns", err)
		}
		columns = append(columns, col)
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("list columns", err)
	}
	return columns, nil
}

// AddColumn creates a column and back-fills one empty cell per existing
// row, plus a default-visible visibility record for every view of the
// table, all in one transaction: concurrent readers see the column either
// fully absent or fully present, never partially populated.
func (s *Store) AddColumn(ctx context.Context, tableID, name string, colType model.ColumnType) (*model.Column, []model.Cell, error) {
	if _, err := s.GetTable(ctx, tableID); err != nil {
		return nil, nil, err
	}

	col := &model.Column{
		ID:      s.newID(),
		TableID: tableID,
		Name:    name,
		Type:    colType,
	}

	var newCells []model.Cell
	err := s.runTx(ctx, "add column", func(tx *sql.Tx) error {
		query, args, err := psql.Insert("`grid_columns`").
			Columns("`id`", "`table_id`", "`name`", "`type`").
			Values(col.ID, col.TableID, col.Name, col.Type).
			ToSql()
		if err != nil {
			return griderr.Storage("add column", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("add column", err)
		}

		// Back-fill cells for every existing row.
		query, args, err = psql.Select("`id`").
			From("`grid_rows`").
			Where(sq.Eq{"`table_id`": tableID}).
			ToSql()
		if err != nil {
			return griderr.Storage("add column", err)
		}
		result, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return griderr.Storage("add column", err)
		}
		var rowIDs []string
		for result.Next() {
			var id string
			if err := result.Scan(&id); err != nil {
				result.Close()
				return griderr.Storage("add column", err)
			}
			rowIDs = append(rowIDs, id)
		}
		if err := result.Err(); err != nil {
			result.Close()
			return griderr.Storage("add column", err)
		}
		result.Close()

		for _, rowID := range rowIDs {
			newCells = append(newCells, model.Cell{
				ID:       s.newID(),
				RowID:    rowID,
				ColumnID: col.ID,
				Value:    "",
			})
		}
		for start := 0; start < len(newCells); start += insertChunkSize {
			end := start + insertChunkSize
			if end > len(newCells) {
				end = len(newCells)
			}
			cellInsert := psql.Insert("`cells`").Columns("`id`", "`row_id`", "`column_id`", "`value`")
			for _, cell := range newCells[start:end] {
				cellInsert = cellInsert.Values(cell.ID, cell.RowID, cell.ColumnID, cell.Value)
			}
			query, args, err = cellInsert.ToSql()
			if err != nil {
				return griderr.Storage("add column", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return griderr.Storage("add column", err)
			}
		}

		// Extend every view of the table with a default-visible record so
		// the new column has an explicit visibility entry before the view
		// is next applied.
		query, args, err = psql.Select("`id`").
			From("`views`").
			Where(sq.Eq{"`table_id`": tableID}).
			ToSql()
		if err != nil {
			return griderr.Storage("add column", err)
		}
		viewResult, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return griderr.Storage("add column", err)
		}
		var viewIDs []string
		for viewResult.Next() {
			var id string
			if err := viewResult.Scan(&id); err != nil {
				viewResult.Close()
				return griderr.Storage("add column", err)
			}
			viewIDs = append(viewIDs, id)
		}
		if err := viewResult.Err(); err != nil {
			viewResult.Close()
			return griderr.Storage("add column", err)
		}
		viewResult.Close()

		if len(viewIDs) > 0 {
			visInsert := psql.Insert("`column_visibility`").Columns("`view_id`", "`column_id`", "`is_visible`")
			for _, viewID := range viewIDs {
				visInsert = visInsert.Values(viewID, col.ID, true)
			}
			query, args, err = visInsert.ToSql()
			if err != nil {
				return griderr.Storage("add column", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return griderr.Storage("add column", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return col, newCells, nil
}
