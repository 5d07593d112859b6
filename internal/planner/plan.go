// Package planner lowers a parsed SQL statement into a linear sequence of
// ExecutionSteps that the execution engine interprets against the storage
// engine. All data borrowed from the AST is deep-cloned here so the plan
// can outlive the parser's buffers.
package planner

import (
	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/storage"
	"github.com/relite/relite/internal/value"
)

// Step is one instruction in an ExecutionPlan.
type Step interface{ isStep() }

// TableScan appends every row of Table to the running result set.
type TableScan struct{ Table string }

// Filter retains rows for which Cond evaluates true.
type Filter struct{ Cond sql.Cond }

// Project reduces each row to Columns; Columns == ["*"] is a no-op marker
// handled specially by the execution engine rather than expanded here,
// matching the column list kept verbatim by the planner.
type Project struct{ Columns []sql.SelectColumn }

// Limit keeps rows[Offset : Offset+Count], clamped to the slice length. A
// negative Count (OFFSET without LIMIT) keeps every row from Offset on.
type Limit struct {
	Count  int
	Offset int
}

// Insert adds each row in Rows (after parameter substitution) to Table.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]sql.Expr
}

// CreateTable creates Table with the given column schema.
type CreateTable struct {
	Table       string
	Columns     []storage.Column
	IfNotExists bool
}

// Update scans Table, applies Assignments to every row matching Cond (or
// every row if Cond is nil).
type Update struct {
	Table       string
	Assignments []sql.Assignment
	Cond        sql.Cond
}

// Delete scans Table, removing every row matching Cond (or every row if
// Cond is nil).
type Delete struct {
	Table string
	Cond  sql.Cond
}

func (TableScan) isStep()   {}
func (Filter) isStep()      {}
func (Project) isStep()     {}
func (Limit) isStep()       {}
func (Insert) isStep()      {}
func (CreateTable) isStep() {}
func (Update) isStep()      {}
func (Delete) isStep()      {}

// Plan lowers stmt into an ordered list of Steps.
func Plan(stmt sql.Statement) ([]Step, error) {
	switch s := stmt.(type) {
	case *sql.SelectStmt:
		return planSelect(s), nil
	case *sql.InsertStmt:
		return planInsert(s), nil
	case *sql.CreateTableStmt:
		return planCreateTable(s), nil
	case *sql.UpdateStmt:
		return planUpdate(s), nil
	case *sql.DeleteStmt:
		return planDelete(s), nil
	default:
		return nil, errUnsupportedStatement
	}
}

func planSelect(s *sql.SelectStmt) []Step {
	steps := []Step{TableScan{Table: s.Table}}
	if s.Where != nil {
		steps = append(steps, Filter{Cond: cloneCond(s.Where)})
	}
	steps = append(steps, Project{Columns: cloneColumns(s.Columns)})
	if s.Limit != nil || s.Offset != nil {
		limit := Limit{Count: -1, Offset: 0}
		if s.Limit != nil {
			limit.Count = *s.Limit
		}
		if s.Offset != nil {
			limit.Offset = *s.Offset
		}
		steps = append(steps, limit)
	}
	return steps
}

func planInsert(s *sql.InsertStmt) []Step {
	cols := append([]string(nil), s.Columns...)
	rows := make([][]sql.Expr, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = append([]sql.Expr(nil), row...)
	}
	return []Step{Insert{Table: s.Table, Columns: cols, Rows: rows}}
}

func planCreateTable(s *sql.CreateTableStmt) []Step {
	cols := make([]storage.Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = storage.Column{
			Name:         c.Name,
			Type:         columnType(c.Type),
			IsPrimaryKey: c.PrimaryKey,
			IsNullable:   !c.NotNull,
		}
		if c.Default != nil {
			if c.Default.IsFunc {
				cols[i].Default = storage.Default{
					HasDefault: true,
					IsFunc:     true,
					FuncName:   c.Default.FuncName,
					FuncArgs:   cloneValues(c.Default.FuncArgs),
				}
			} else {
				cols[i].Default = storage.Default{
					HasDefault: true,
					Literal:    c.Default.Literal.Clone(),
				}
			}
		}
	}
	return []Step{CreateTable{Table: s.Table, Columns: cols, IfNotExists: s.IfNotExists}}
}

func planUpdate(s *sql.UpdateStmt) []Step {
	assignments := make([]sql.Assignment, len(s.Assignments))
	copy(assignments, s.Assignments)
	var cond sql.Cond
	if s.Where != nil {
		cond = cloneCond(s.Where)
	}
	return []Step{Update{Table: s.Table, Assignments: assignments, Cond: cond}}
}

func planDelete(s *sql.DeleteStmt) []Step {
	var cond sql.Cond
	if s.Where != nil {
		cond = cloneCond(s.Where)
	}
	return []Step{Delete{Table: s.Table, Cond: cond}}
}

func columnType(t string) storage.ColumnType {
	switch t {
	case "INTEGER":
		return storage.TypeInteger
	case "TEXT":
		return storage.TypeText
	case "REAL":
		return storage.TypeReal
	case "BLOB":
		return storage.TypeBlob
	default:
		return storage.TypeInteger
	}
}

func cloneColumns(cols []sql.SelectColumn) []sql.SelectColumn {
	out := make([]sql.SelectColumn, len(cols))
	copy(out, cols)
	return out
}

func cloneValues(vs []value.Value) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// cloneCond deep-copies a Cond tree so the plan does not retain any AST
// node the parser might reuse.
func cloneCond(c sql.Cond) sql.Cond {
	switch n := c.(type) {
	case *sql.Comparison:
		return &sql.Comparison{Left: cloneExpr(n.Left), Op: n.Op, Right: cloneExpr(n.Right)}
	case *sql.Logical:
		return &sql.Logical{Left: cloneCond(n.Left), Op: n.Op, Right: cloneCond(n.Right)}
	default:
		return nil
	}
}

func cloneExpr(e sql.Expr) sql.Expr {
	switch n := e.(type) {
	case sql.ColumnRef:
		return sql.ColumnRef{Name: n.Name}
	case sql.Literal:
		return sql.Literal{Value: n.Value.Clone()}
	case sql.ParamExpr:
		return sql.ParamExpr{Index: n.Index}
	default:
		return nil
	}
}
