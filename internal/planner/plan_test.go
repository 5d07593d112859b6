package planner

import (
	"testing"

	"github.com/relite/relite/internal/sql"
)

func mustParse(t *testing.T, text string) sql.Statement {
	t.Helper()
	stmt, err := sql.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return stmt
}

func TestPlan_SelectStarProducesScanProjectNoFilterNoLimit(t *testing.T) {
	steps, err := Plan(mustParse(t, `SELECT * FROM t`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2 (scan, project): %+v", len(steps), steps)
	}
	if _, ok := steps[0].(TableScan); !ok {
		t.Fatalf("step 0: got %T, want TableScan", steps[0])
	}
	if _, ok := steps[1].(Project); !ok {
		t.Fatalf("step 1: got %T, want Project", steps[1])
	}
}

func TestPlan_SelectWithWhereAndLimitAddsFilterAndLimitSteps(t *testing.T) {
	steps, err := Plan(mustParse(t, `SELECT id FROM t WHERE id = 1 LIMIT 5`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4 (scan, filter, project, limit): %+v", len(steps), steps)
	}
	if _, ok := steps[1].(Filter); !ok {
		t.Fatalf("step 1: got %T, want Filter", steps[1])
	}
	limit, ok := steps[3].(Limit)
	if !ok {
		t.Fatalf("step 3: got %T, want Limit", steps[3])
	}
	if limit.Count != 5 || limit.Offset != 0 {
		t.Fatalf("got %+v", limit)
	}
}

func TestPlan_Insert(t *testing.T) {
	steps, err := Plan(mustParse(t, `INSERT INTO t VALUES (1, 'a')`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(steps))
	}
	ins, ok := steps[0].(Insert)
	if !ok {
		t.Fatalf("got %T, want Insert", steps[0])
	}
	if ins.Table != "t" || len(ins.Rows) != 1 || len(ins.Rows[0]) != 2 {
		t.Fatalf("got %+v", ins)
	}
}

func TestPlan_CreateTableTranslatesColumnTypes(t *testing.T) {
	steps, err := Plan(mustParse(t, `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	ct, ok := steps[0].(CreateTable)
	if !ok {
		t.Fatalf("got %T, want CreateTable", steps[0])
	}
	if len(ct.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(ct.Columns))
	}
	if !ct.Columns[0].IsPrimaryKey {
		t.Fatal("expected id to be primary key")
	}
	if ct.Columns[1].IsNullable {
		t.Fatal("NOT NULL column should have IsNullable false")
	}
}

func TestPlan_UpdateCarriesAssignmentsAndCond(t *testing.T) {
	steps, err := Plan(mustParse(t, `UPDATE t SET name = 'x' WHERE id = 1`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	up, ok := steps[0].(Update)
	if !ok {
		t.Fatalf("got %T, want Update", steps[0])
	}
	if len(up.Assignments) != 1 || up.Cond == nil {
		t.Fatalf("got %+v", up)
	}
}

func TestPlan_DeleteWithoutWhereHasNilCond(t *testing.T) {
	steps, err := Plan(mustParse(t, `DELETE FROM t`))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	del, ok := steps[0].(Delete)
	if !ok {
		t.Fatalf("got %T, want Delete", steps[0])
	}
	if del.Cond != nil {
		t.Fatal("expected a nil Cond for an unconditional DELETE")
	}
}

func TestPlan_ClonesConditionIndependentlyOfParseTree(t *testing.T) {
	stmt := mustParse(t, `SELECT * FROM t WHERE id = 1`).(*sql.SelectStmt)
	steps, err := Plan(stmt)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	filter := steps[1].(Filter)
	cmp := filter.Cond.(*sql.Comparison)
	// Mutate the original parse tree; the planned step must be unaffected.
	stmt.Where.(*sql.Comparison).Op = "!="
	if cmp.Op != "=" {
		t.Fatal("Plan should deep-clone the condition tree, not alias the parser's nodes")
	}
}
