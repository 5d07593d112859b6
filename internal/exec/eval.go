package exec

import (
	"fmt"

	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/value"
)

// evalExpr evaluates e against row and the bound parameter list. Column
// references resolve to position 0 (a documented simplification carried
// from the planner: proper name-to-index resolution is future work).
func evalExpr(e sql.Expr, row value.Row, params []value.Value) (value.Value, error) {
	switch n := e.(type) {
	case sql.ColumnRef:
		if len(row) == 0 {
			return value.Null(), nil
		}
		return row[0].Clone(), nil
	case sql.Literal:
		return n.Value.Clone(), nil
	case sql.ParamExpr:
		if int(n.Index) >= len(params) {
			return value.Value{}, fmt.Errorf("exec: index %d: %w", n.Index, ErrInvalidParameterIndex)
		}
		return params[n.Index].Clone(), nil
	default:
		return value.Value{}, fmt.Errorf("exec: %w", ErrUnsupportedFeature)
	}
}

// evalCond evaluates a predicate against row, short-circuiting Logical
// combinations.
func evalCond(c sql.Cond, row value.Row, params []value.Value) (bool, error) {
	switch n := c.(type) {
	case *sql.Comparison:
		l, err := evalExpr(n.Left, row, params)
		if err != nil {
			return false, err
		}
		r, err := evalExpr(n.Right, row, params)
		if err != nil {
			return false, err
		}
		cmp := value.Compare(l, r)
		switch n.Op {
		case "=":
			return cmp == 0, nil
		case "!=":
			return cmp != 0, nil
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("exec: operator %q: %w", n.Op, ErrUnsupportedFeature)
		}
	case *sql.Logical:
		left, err := evalCond(n.Left, row, params)
		if err != nil {
			return false, err
		}
		if n.Op == "AND" && !left {
			return false, nil
		}
		if n.Op == "OR" && left {
			return true, nil
		}
		return evalCond(n.Right, row, params)
	default:
		return false, fmt.Errorf("exec: %w", ErrUnsupportedFeature)
	}
}
