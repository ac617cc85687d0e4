// Package seed generates demo content for newly created tables and rows.
// Recognized column names get faker values; everything else defaults to
// the empty string, which is the only guaranteed default.
package seed

import (
	"github.com/brianvoe/gofakeit/v7"

	"github.com/rbeccah/airtable/internal/model"
)

// DefaultColumns is the column set every new table starts with.
func DefaultColumns() []model.ColumnSpec {
	return []model.ColumnSpec{
		{Name: "FirstName", Type: model.ColumnTypeText},
		{Name: "LastName", Type: model.ColumnTypeText},
		{Name: "Role", Type: model.ColumnTypeText},
	}
}

// DefaultRowCount is how many seeded rows a new table starts with.
const DefaultRowCount = 10

// DefaultValue returns a demo value for recognized column names and the
// empty string for everything else.
func DefaultValue(col model.Column) string {
	switch col.Name {
	case "FirstName":
		return gofakeit.FirstName()
	case "LastName":
		return gofakeit.LastName()
	case "Role":
		return gofakeit.JobTitle()
	default:
		return ""
	}
}
