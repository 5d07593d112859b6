package relite

import (
	"fmt"

	"github.com/relite/relite/internal/exec"
	"github.com/relite/relite/internal/planner"
	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/value"
)

// PreparedStatement caches the plan built from a statement (the parsed
// statement itself is not kept) so repeated executions skip
// tokenizing/parsing/planning. Parameters are bound by
// position in [0, ParameterCount).
type PreparedStatement struct {
	conn   *Connection
	steps  []planner.Step
	params []value.Value
}

// ParameterCount is the number of positional '?' placeholders the
// statement text contained.
func (ps *PreparedStatement) ParameterCount() int { return len(ps.params) }

// Prepare parses and plans sqlText once, returning a handle that can be
// executed repeatedly with different bound parameters via Step.
func (c *Connection) Prepare(sqlText string) (*PreparedStatement, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	stmt, err := sql.Parse(sqlText)
	if err != nil {
		return nil, err
	}
	steps, err := planner.Plan(stmt)
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{
		conn:   c,
		steps:  steps,
		params: make([]value.Value, countParams(steps)),
	}, nil
}

func countParams(steps []planner.Step) int {
	maxIdx := 0
	observe := func(e sql.Expr) {
		if p, ok := e.(sql.ParamExpr); ok && int(p.Index)+1 > maxIdx {
			maxIdx = int(p.Index) + 1
		}
	}
	var walkCond func(c sql.Cond)
	walkCond = func(c sql.Cond) {
		switch n := c.(type) {
		case *sql.Comparison:
			observe(n.Left)
			observe(n.Right)
		case *sql.Logical:
			walkCond(n.Left)
			walkCond(n.Right)
		}
	}
	for _, s := range steps {
		switch st := s.(type) {
		case planner.Insert:
			for _, row := range st.Rows {
				for _, e := range row {
					observe(e)
				}
			}
		case planner.Update:
			for _, a := range st.Assignments {
				observe(a.Value)
			}
			if st.Cond != nil {
				walkCond(st.Cond)
			}
		case planner.Delete:
			if st.Cond != nil {
				walkCond(st.Cond)
			}
		case planner.Filter:
			walkCond(st.Cond)
		}
	}
	return maxIdx
}

// BindParameter binds value to the index-th placeholder. Text/Blob values
// are deep-copied so the statement owns them independently of the caller.
func (ps *PreparedStatement) BindParameter(index int, v value.Value) error {
	if index < 0 || index >= len(ps.params) {
		return fmt.Errorf("relite: parameter index %d: %w", index, exec.ErrInvalidParameterIndex)
	}
	ps.params[index] = v.Clone()
	return nil
}

// Reset clears every bound parameter back to Null without discarding the
// cached plan.
func (ps *PreparedStatement) Reset() {
	for i := range ps.params {
		ps.params[i] = value.Null()
	}
}

// Step runs the prepared statement once against its connection's engine,
// substituting each ParamExpr(i) with the i-th bound value.
func (ps *PreparedStatement) Step() (*exec.Result, error) {
	if err := ps.conn.checkOpen(); err != nil {
		return nil, err
	}
	c := ps.conn
	implicit := !c.mem && !c.inTxn
	if implicit {
		if err := c.Begin(); err != nil {
			return nil, err
		}
	}
	res, err := exec.Run(ps.steps, c.engine, ps.params)
	if err != nil {
		if implicit {
			_ = c.Rollback()
		}
		return nil, err
	}
	if implicit {
		if err := c.Commit(); err != nil {
			return nil, err
		}
	} else if containsMutation(ps.steps) {
		if err := c.engine.SaveCatalog(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Finalize releases the prepared statement. The plan is owned solely by
// this handle, so there is nothing further to free beyond letting it be
// garbage collected.
func (ps *PreparedStatement) Finalize() {
	ps.steps = nil
	ps.params = nil
}
