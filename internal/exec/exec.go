// Package exec interprets an ExecutionPlan produced by the planner against
// a storage engine, evaluating expressions and predicates and applying
// projection, limiting, and mutation.
package exec

import (
	"github.com/relite/relite/internal/planner"
	"github.com/relite/relite/internal/storage"
	"github.com/relite/relite/internal/value"
)

// Result is the mutable accumulator every step is executed against.
type Result struct {
	Rows         []value.Row
	AffectedRows int
}

// Run executes steps against eng, substituting ParamExpr(i) with params[i]
// wherever a step evaluates an expression.
func Run(steps []planner.Step, eng *storage.Engine, params []value.Value) (*Result, error) {
	res := &Result{}
	var rows []value.Row
	var keys []uint64

	for _, step := range steps {
		switch s := step.(type) {
		case planner.TableScan:
			t, err := eng.GetTable(s.Table)
			if err != nil {
				return nil, err
			}
			k, r, err := t.ScanAll()
			if err != nil {
				return nil, err
			}
			keys, rows = k, r

		case planner.Filter:
			fk, fr, err := filterRows(keys, rows, s.Cond, params)
			if err != nil {
				return nil, err
			}
			keys, rows = fk, fr

		case planner.Project:
			rows = projectRows(rows, s.Columns)

		case planner.Limit:
			keys, rows = limitRows(keys, rows, s.Offset, s.Count)

		case planner.Insert:
			n, err := runInsert(eng, s, params)
			if err != nil {
				return nil, err
			}
			res.AffectedRows += n

		case planner.CreateTable:
			if err := runCreateTable(eng, s); err != nil {
				return nil, err
			}
			res.AffectedRows = 1

		case planner.Update:
			n, err := runUpdate(eng, s, params)
			if err != nil {
				return nil, err
			}
			res.AffectedRows += n

		case planner.Delete:
			n, err := runDelete(eng, s, params)
			if err != nil {
				return nil, err
			}
			res.AffectedRows += n
		}
	}

	res.Rows = rows
	return res, nil
}
