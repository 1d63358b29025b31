// Package statement generates SQL text and ordered parameter bindings for
// CRUD-level operations. Generation is pure: the same dialect and arguments
// always produce the same statement, no I/O happens, and all variable data
// travels as bound parameters rather than interpolated text.
//
// Column order is significant throughout, so data and filters are expressed
// as ordered Field slices rather than maps: the order fields appear in is the
// order columns render in and the order parameters bind in.
package statement

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/polybase/pkg/dialect"
	"github.com/ajitpratap0/polybase/pkg/errors"
)

// Statement is a generated SQL text paired with its ordered bound parameters.
// It is created fresh per call and never mutated afterwards.
type Statement struct {
	SQL    string
	Params []interface{}
}

// Batch is one SQL template shared across rows, executed with one parameter
// tuple per row.
type Batch struct {
	SQL       string
	ParamSets [][]interface{}
}

// ColumnDef is an ordered column definition for DDL.
type ColumnDef struct {
	Name string
	Type string
}

// Field is an ordered column/value pair for data and filters.
type Field struct {
	Column string
	Value  interface{}
}

// Fields is an ordered set of column/value pairs.
type Fields []Field

// Columns returns the column names in order.
func (f Fields) Columns() []string {
	cols := make([]string, len(f))
	for i, field := range f {
		cols[i] = field.Column
	}
	return cols
}

// Values returns the values in column order.
func (f Fields) Values() []interface{} {
	vals := make([]interface{}, len(f))
	for i, field := range f {
		vals[i] = field.Value
	}
	return vals
}

// CreateTable generates CREATE TABLE [IF NOT EXISTS] <table> (<col type>, ...,
// [PRIMARY KEY (<cols>)]). Column order in the output matches input order.
func CreateTable(d dialect.Dialect, table string, columns []ColumnDef, primaryKey []string, ifNotExists bool) (Statement, error) {
	if table == "" || len(columns) == 0 {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name and columns must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" (")

	for i, col := range columns {
		if col.Name == "" || col.Type == "" {
			return Statement{}, errors.New(errors.ErrorTypeValidation, "column name and type must not be empty")
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(col.Name))
		sb.WriteString(" ")
		sb.WriteString(col.Type)
	}

	if len(primaryKey) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(joinQuoted(d, primaryKey))
		sb.WriteString(")")
	}

	sb.WriteString(")")
	return Statement{SQL: sb.String()}, nil
}

// DropTable generates DROP TABLE [IF EXISTS] <table>.
func DropTable(d dialect.Dialect, table string, ifExists bool) (Statement, error) {
	if table == "" {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("DROP TABLE ")
	if ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(d.QuoteIdentifier(table))
	return Statement{SQL: sb.String()}, nil
}

// CreateIndex generates CREATE [UNIQUE] INDEX <name> ON <table> (<cols>).
func CreateIndex(d dialect.Dialect, indexName, table string, columns []string, unique bool) (Statement, error) {
	if indexName == "" || table == "" || len(columns) == 0 {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "index name, table name, and columns must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(d.QuoteIdentifier(indexName))
	sb.WriteString(" ON ")
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" (")
	sb.WriteString(joinQuoted(d, columns))
	sb.WriteString(")")
	return Statement{SQL: sb.String()}, nil
}

// Insert generates INSERT INTO <table> (<cols>) VALUES (<placeholders>).
// Parameters follow the column order of data.
func Insert(d dialect.Dialect, table string, data Fields) (Statement, error) {
	if table == "" || len(data) == 0 {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name and data must not be empty")
	}

	sql := insertTemplate(d, table, data.Columns())
	return Statement{SQL: sql, Params: data.Values()}, nil
}

// BulkInsert generates one INSERT template shared across rows, with one
// parameter tuple per row in the template's column order. All rows must share
// an identical column set; a mismatch fails with a schema_mismatch error.
func BulkInsert(d dialect.Dialect, table string, rows []Fields) (Batch, error) {
	if table == "" || len(rows) == 0 {
		return Batch{}, errors.New(errors.ErrorTypeValidation, "table name and rows must not be empty")
	}

	template := rows[0].Columns()
	sets := make([][]interface{}, len(rows))
	for i, row := range rows {
		values, err := valuesInOrder(row, template)
		if err != nil {
			return Batch{}, err
		}
		sets[i] = values
	}

	return Batch{SQL: insertTemplate(d, table, template), ParamSets: sets}, nil
}

// Select generates SELECT <cols> FROM <table> [WHERE ...] [ORDER BY ...]
// [LIMIT n]. A nil or empty columns slice selects *. Filters are equality
// conditions conjoined with AND, in field order; parameters follow that order.
// A limit of 0 means no limit; a dialect without a row-limiting clause fails
// with an unsupported_feature error rather than silently dropping the limit.
func Select(d dialect.Dialect, table string, columns []string, where Fields, orderBy []string, limit int) (Statement, error) {
	if table == "" {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(joinQuoted(d, columns))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(d.QuoteIdentifier(table))

	params := writeWhere(d, &sb, where, 0)

	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(joinQuoted(d, orderBy))
	}

	if limit > 0 {
		clause, err := d.LimitClause(limit)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" ")
		sb.WriteString(clause)
	}

	return Statement{SQL: sb.String(), Params: params}, nil
}

// Update generates UPDATE <table> SET c1 = ?, ... [WHERE ...]. Parameters are
// the SET values followed by the WHERE values, in that order.
func Update(d dialect.Dialect, table string, data Fields, where Fields) (Statement, error) {
	if table == "" || len(data) == 0 {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name and data must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" SET ")

	params := make([]interface{}, 0, len(data)+len(where))
	for i, field := range data {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(field.Column))
		sb.WriteString(" = ")
		sb.WriteString(d.Placeholder(i + 1))
		params = append(params, field.Value)
	}

	params = append(params, writeWhere(d, &sb, where, len(data))...)
	return Statement{SQL: sb.String(), Params: params}, nil
}

// Delete generates DELETE FROM <table> [WHERE ...]. A missing filter affects
// all rows; callers opt into that explicitly by passing no fields.
func Delete(d dialect.Dialect, table string, where Fields) (Statement, error) {
	if table == "" {
		return Statement{}, errors.New(errors.ErrorTypeValidation, "table name must not be empty")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.QuoteIdentifier(table))

	params := writeWhere(d, &sb, where, 0)
	return Statement{SQL: sb.String(), Params: params}, nil
}

// insertTemplate renders the shared INSERT text for the given column order.
func insertTemplate(d dialect.Dialect, table string, columns []string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteString(" (")
	sb.WriteString(joinQuoted(d, columns))
	sb.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.Placeholder(i + 1))
	}
	sb.WriteString(")")
	return sb.String()
}

// writeWhere appends the WHERE clause and returns its parameters. offset is
// the number of placeholders already emitted, so numbered markers continue
// counting across clauses.
func writeWhere(d dialect.Dialect, sb *strings.Builder, where Fields, offset int) []interface{} {
	if len(where) == 0 {
		return nil
	}

	sb.WriteString(" WHERE ")
	params := make([]interface{}, 0, len(where))
	for i, field := range where {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(d.QuoteIdentifier(field.Column))
		sb.WriteString(" = ")
		sb.WriteString(d.Placeholder(offset + i + 1))
		params = append(params, field.Value)
	}
	return params
}

// valuesInOrder extracts row values in template order, requiring the row's
// column set to match the template exactly.
func valuesInOrder(row Fields, template []string) ([]interface{}, error) {
	if len(row) != len(template) {
		return nil, errors.New(errors.ErrorTypeSchemaMismatch, "all rows must have the same columns")
	}

	byColumn := make(map[string]interface{}, len(row))
	for _, field := range row {
		byColumn[field.Column] = field.Value
	}
	if len(byColumn) != len(template) {
		return nil, errors.New(errors.ErrorTypeSchemaMismatch, "all rows must have the same columns")
	}

	values := make([]interface{}, len(template))
	for i, col := range template {
		value, ok := byColumn[col]
		if !ok {
			return nil, errors.New(errors.ErrorTypeSchemaMismatch,
				fmt.Sprintf("row is missing column %s", col))
		}
		values[i] = value
	}
	return values, nil
}

func joinQuoted(d dialect.Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = d.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}
