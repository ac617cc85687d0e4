// Package predicate compiles a view's stored filter conditions into a
// storage-layer query predicate. Conditions are a closed enum compiled
// all-or-nothing: a single malformed condition aborts the whole request
// rather than silently widening the result set.
package predicate

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/model"
)

const cellValue = "`cells`.`value`"

// Predicate is the compiled form of a filter set. The SQL side intersects
// with a table-scope condition on `grid_rows`; Matches mirrors the same
// semantics for in-memory evaluation.
type Predicate struct {
	conditions []model.FilterCondition
	sqlizer    sq.Sqlizer
}

// Compile translates the filter list into a predicate. All conditions are
// ANDed; there is no OR support and no nesting. An unrecognized operator
// yields griderr.ErrInvalidFilterCondition.
func Compile(filters []model.FilterCondition) (*Predicate, error) {
	if len(filters) == 0 {
		return &Predicate{}, nil
	}

	conds := make([]sq.Sqlizer, 0, len(filters))
	for _, f := range filters {
		cond, err := conditionSqlizer(f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}

	var combined sq.Sqlizer
	if len(conds) == 1 {
		combined = conds[0]
	} else {
		combined = sq.And(conds)
	}

	return &Predicate{
		conditions: append([]model.FilterCondition(nil), filters...),
		sqlizer:    combined,
	}, nil
}

// Empty reports whether the predicate has no conditions.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.conditions) == 0
}

// Sqlizer returns the SQL condition to intersect with a row query, or nil
// when the predicate is empty.
func (p *Predicate) Sqlizer() sq.Sqlizer {
	if p.Empty() {
		return nil
	}
	return p.sqlizer
}

// Conditions returns the compiled filter list.
func (p *Predicate) Conditions() []model.FilterCondition {
	if p == nil {
		return nil
	}
	return p.conditions
}

// Matches evaluates the predicate against a row's full cell set. A row
// matches iff, for every condition, the cell for that condition's column
// exists and satisfies it. A condition targeting a column the row has no
// cell for never matches, which also covers conditions referencing columns
// that do not exist on the table.
func (p *Predicate) Matches(row model.Row) bool {
	if p.Empty() {
		return true
	}
	for _, f := range p.conditions {
		cell := row.CellByColumn(f.ColumnID)
		if cell == nil || !conditionMatches(f, cell.Value) {
			return false
		}
	}
	return true
}

// conditionSqlizer builds the EXISTS subquery for one condition: the row
// matches when its cell in the target column satisfies the value predicate.
func conditionSqlizer(f model.FilterCondition) (sq.Sqlizer, error) {
	valueCond, err := valueSqlizer(f)
	if err != nil {
		return nil, err
	}

	sub := sq.Select("1").
		From("`cells`").
		Where(sq.Expr("`cells`.`row_id` = `grid_rows`.`id`")).
		Where(sq.Eq{"`cells`.`column_id`": f.ColumnID}).
		Where(valueCond).
		PlaceholderFormat(sq.Question)

	subSQL, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("EXISTS ("+subSQL+")", args...), nil
}

func valueSqlizer(f model.FilterCondition) (sq.Sqlizer, error) {
	switch f.Operator {
	case model.FilterContains:
		return sq.Expr("LOWER("+cellValue+") LIKE ?", containsPattern(f.Value)), nil
	case model.FilterDoesNotContain:
		return sq.Expr("LOWER("+cellValue+") NOT LIKE ?", containsPattern(f.Value)), nil
	case model.FilterIsEqualTo:
		return sq.Eq{cellValue: f.Value}, nil
	case model.FilterIsEmpty:
		return sq.Eq{cellValue: ""}, nil
	case model.FilterIsNotEmpty:
		return sq.NotEq{cellValue: ""}, nil
	default:
		return nil, fmt.Errorf("%w: %q", griderr.ErrInvalidFilterCondition, f.Operator)
	}
}

func conditionMatches(f model.FilterCondition, value string) bool {
	switch f.Operator {
	case model.FilterContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
	case model.FilterDoesNotContain:
		return !strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
	case model.FilterIsEqualTo:
		return value == f.Value
	case model.FilterIsEmpty:
		return value == ""
	case model.FilterIsNotEmpty:
		return value != ""
	default:
		return false
	}
}

// containsPattern builds a case-insensitive LIKE pattern, escaping the
// LIKE metacharacters in the needle. MySQL's default escape character is
// backslash.
func containsPattern(needle string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	).Replace(strings.ToLower(needle))
	return "%" + escaped + "%"
}
