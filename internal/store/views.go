package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
)

// CountViews returns the number of views on a table, used for default
// view naming ("Grid view N").
func (s *Store) CountViews(ctx context.Context, tableID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("`views`").
		Where(sq.Eq{"`table_id`": tableID}).
		ToSql()
	if err != nil {
		return 0, griderr.Storage("count views", err)
	}
	var count int
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, griderr.Storage("count views", err)
	}
	return count, nil
}

// CreateView creates a view with default-visible records for every column
// of the table.
func (s *Store) CreateView(ctx context.Context, tableID, name string) (*model.View, error) {
	columns, err := s.tableColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}

	view := &model.View{
		ID:      s.newID(),
		TableID: tableID,
		Name:    name,
	}
	for _, col := range columns {
		view.Visibility = append(view.Visibility, model.ColumnVisibility{
			ViewID:    view.ID,
			ColumnID:  col.ID,
			IsVisible: true,
		})
	}

	err = s.runTx(ctx, "create view", func(tx *sql.Tx) error {
		query, args, err := psql.Insert("`views`").
			Columns("`id`", "`table_id`", "`name`").
			Values(view.ID, view.TableID, view.Name).
			ToSql()
		if err != nil {
			return griderr.Storage("create view", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("create view", err)
		}

		if len(view.Visibility) == 0 {
			return nil
		}
		visInsert := psql.Insert("`column_visibility`").Columns("`view_id`", "`column_id`", "`is_visible`")
		for _, vis := range view.Visibility {
			visInsert = visInsert.Values(vis.ViewID, vis.ColumnID, vis.IsVisible)
		}
		query, args, err = visInsert.ToSql()
		if err != nil {
			return griderr.Storage("create view", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("create view", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// GetView loads a view with its filters, sorts, and visibility records.
func (s *Store) GetView(ctx context.Context, viewID string) (*model.View, error) {
	query, args, err := psql.Select("`id`", "`table_id`", "`name`").
		From("`views`").
		Where(sq.Eq{"`id`": viewID}).
		ToSql()
	if err != nil {
		return nil, griderr.Storage("get view", err)
	}

	var view model.View
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&view.ID, &view.TableID, &view.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, griderr.ErrViewNotFound
		}
		return nil, griderr.Storage("get view", err)
	}

	if err := s.loadViewState(ctx, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListViews returns every view of a table with its full state.
func (s *Store) ListViews(ctx context.Context, tableID string) ([]model.View, error) {
	query, args, err := psql.Select("`id`", "`table_id`", "`name`").
		From("`views`").
		Where(sq.Eq{"`table_id`": tableID}).
		OrderBy("`seq` ASC").
		ToSql()
	if err != nil {
		return nil, griderr.Storage("list views", err)
	}

	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, griderr.Storage("list views", err)
	}
	defer result.Close()

	var views []model.View
	for result.Next() {
		var view model.View
		if err := result.Scan(&view.ID, &view.TableID, &view.Name); err != nil {
			return nil, griderr.Storage("list views", err)
		}
		views = append(views, view)
	}
	if err := result.Err(); err != nil {
		return nil, griderr.Storage("list views", err)
	}

	for i := range views {
		if err := s.loadViewState(ctx, &views[i]); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (s *Store) loadViewState(ctx context.Context, view *model.View) error {
	query, args, err := psql.Select("`id`", "`view_id`", "`column_id`", "`operator`", "`value`").
		From("`filter_conditions`").
		Where(sq.Eq{"`view_id`": view.ID}).
		OrderBy("`seq` ASC").
		ToSql()
	if err != nil {
		return griderr.Storage("load filters", err)
	}
	result, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return griderr.Storage("load filters", err)
	}
	for result.Next() {
		var f model.FilterCondition
		if err := result.Scan(&f.ID, &f.ViewID, &f.ColumnID, &f.Operator, &f.Value); err != nil {
			result.Close()
			return griderr.Storage("load filters", err)
		}
		view.Filters = append(view.Filters, f)
	}
	if err := result.Err(); err != nil {
		result.Close()
		return griderr.Storage("load filters", err)
	}
	result.Close()

	query, args, err = psql.Select("`id`", "`view_id`", "`column_id`", "`sort_order`").
		From("`sort_conditions`").
		Where(sq.Eq{"`view_id`": view.ID}).
		OrderBy("`seq` ASC").
		ToSql()
	if err != nil {
		return griderr.Storage("load sorts", err)
	}
	result, err = s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return griderr.Storage("load sorts", err)
	}
	for result.Next() {
		var sc model.SortCondition
		if err := result.Scan(&sc.ID, &sc.ViewID, &sc.ColumnID, &sc.Order); err != nil {
			result.Close()
			return griderr.Storage("load sorts", err)
		}
		view.Sorts = append(view.Sorts, sc)
	}
	if err := result.Err(); err != nil {
		result.Close()
		return griderr.Storage("load sorts", err)
	}
	result.Close()

	query, args, err = psql.Select("`view_id`", "`column_id`", "`is_visible`").
		From("`column_visibility`").
		Where(sq.Eq{"`view_id`": view.ID}).
		ToSql()
	if err != nil {
		return griderr.Storage("load visibility", err)
	}
	result, err = s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return griderr.Storage("load visibility", err)
	}
	for result.Next() {
		var vis model.ColumnVisibility
		if err := result.Scan(&vis.ViewID, &vis.ColumnID, &vis.IsVisible); err != nil {
			result.Close()
			return griderr.Storage("load visibility", err)
		}
		view.Visibility = append(view.Visibility, vis)
	}
	if err := result.Err(); err != nil {
		result.Close()
		return griderr.Storage("load visibility", err)
	}
	result.Close()
	return nil
}

// ReplaceFilters swaps the view's filter set wholesale: delete all, insert
// the new list. There is no incremental diff.
func (s *Store) ReplaceFilters(ctx context.Context, viewID string, filters []model.FilterCondition) ([]model.FilterCondition, error) {
	if _, err := s.GetView(ctx, viewID); err != nil {
		return nil, err
	}

	stored := make([]model.FilterCondition, 0, len(filters))
	for _, f := range filters {
		f.ID = s.newID()
		f.ViewID = viewID
		stored = append(stored, f)
	}

	err := s.runTx(ctx, "replace filters", func(tx *sql.Tx) error {
		query, args, err := psql.Delete("`filter_conditions`").
			Where(sq.Eq{"`view_id`": viewID}).
			ToSql()
		if err != nil {
			return griderr.Storage("replace filters", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace filters", err)
		}

		if len(stored) == 0 {
			return nil
		}
		insert := psql.Insert("`filter_conditions`").
			Columns("`id`", "`view_id`", "`column_id`", "`operator`", "`value`")
		for _, f := range stored {
			insert = insert.Values(f.ID, f.ViewID, f.ColumnID, f.Operator, f.Value)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return griderr.Storage("replace filters", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace filters", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ReplaceSorts swaps the view's sort set wholesale.
func (s *Store) ReplaceSorts(ctx context.Context, viewID string, sorts []model.SortCondition) ([]model.SortCondition, error) {
	if _, err := s.GetView(ctx, viewID); err != nil {
		return nil, err
	}

	stored := make([]model.SortCondition, 0, len(sorts))
	for _, sc := range sorts {
		sc.ID = s.newID()
		sc.ViewID = viewID
		stored = append(stored, sc)
	}

	err := s.runTx(ctx, "replace sorts", func(tx *sql.Tx) error {
		query, args, err := psql.Delete("`sort_conditions`").
			Where(sq.Eq{"`view_id`": viewID}).
			ToSql()
		if err != nil {
			return griderr.Storage("replace sorts", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace sorts", err)
		}

		if len(stored) == 0 {
			return nil
		}
		insert := psql.Insert("`sort_conditions`").
			Columns("`id`", "`view_id`", "`column_id`", "`sort_order`")
		for _, sc := range stored {
			insert = insert.Values(sc.ID, sc.ViewID, sc.ColumnID, sc.Order)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return griderr.Storage("replace sorts", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace sorts", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ReplaceVisibility rebuilds the view's visibility records from a hidden
// column map: one record per column of the table, false when hidden.
func (s *Store) ReplaceVisibility(ctx context.Context, viewID string, hidden map[string]bool) ([]model.ColumnVisibility, error) {
	view, err := s.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	columns, err := s.tableColumns(ctx, view.TableID)
	if err != nil {
		return nil, err
	}

	records := make([]model.ColumnVisibility, 0, len(columns))
	for _, col := range columns {
		records = append(records, model.ColumnVisibility{
			ViewID:    viewID,
			ColumnID:  col.ID,
			IsVisible: !hidden[col.ID],
		})
	}

	err = s.runTx(ctx, "replace visibility", func(tx *sql.Tx) error {
		query, args, err := psql.Delete("`column_visibility`").
			Where(sq.Eq{"`view_id`": viewID}).
			ToSql()
		if err != nil {
			return griderr.Storage("replace visibility", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace visibility", err)
		}

		if len(records) == 0 {
			return nil
		}
		insert := psql.Insert("`column_visibility`").Columns("`view_id`", "`column_id`", "`is_visible`")
		for _, vis := range records {
			insert = insert.Values(vis.ViewID, vis.ColumnID, vis.IsVisible)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return griderr.Storage("replace visibility", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return griderr.Storage("replace visibility", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
