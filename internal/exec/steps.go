package exec

import (
	"github.com/relite/relite/internal/planner"
	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/storage"
	"github.com/relite/relite/internal/value"
)

func filterRows(keys []uint64, rows []value.Row, cond sql.Cond, params []value.Value) ([]uint64, []value.Row, error) {
	var outKeys []uint64
	var outRows []value.Row
	for i, row := range rows {
		ok, err := evalCond(cond, row, params)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			outKeys = append(outKeys, keys[i])
			outRows = append(outRows, row)
		}
	}
	return outKeys, outRows, nil
}

// projectRows reduces each row to cols; cols == ["*"] is a no-op. A row
// with fewer values than requested columns pads with Null.
func projectRows(rows []value.Row, cols []sql.SelectColumn) []value.Row {
	if len(cols) == 1 && cols[0].Name == "*" {
		return rows
	}
	out := make([]value.Row, len(rows))
	for i, row := range rows {
		projected := make(value.Row, len(cols))
		for j := range cols {
			if j < len(row) {
				projected[j] = row[j].Clone()
			} else {
				projected[j] = value.Null()
			}
		}
		out[i] = projected
	}
	return out
}

func limitRows(keys []uint64, rows []value.Row, offset, count int) ([]uint64, []value.Row) {
	if offset > len(rows) {
		offset = len(rows)
	}
	end := len(rows)
	if count >= 0 && offset+count < end {
		end = offset + count
	}
	return keys[offset:end], rows[offset:end]
}

func runInsert(eng *storage.Engine, s planner.Insert, params []value.Value) (int, error) {
	t, err := eng.GetTable(s.Table)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, exprRow := range s.Rows {
		row := make(value.Row, len(exprRow))
		for i, e := range exprRow {
			v, err := evalExpr(e, nil, params)
			if err != nil {
				return n, err
			}
			row[i] = v
		}
		if _, err := t.Insert(row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func runCreateTable(eng *storage.Engine, s planner.CreateTable) error {
	schema := storage.TableSchema{Columns: s.Columns}
	return eng.CreateTable(s.Table, schema, s.IfNotExists)
}

// runUpdate applies assignments positionally to column 0 of every row
// matching cond (or every row if cond is nil), using update-by-key so the
// clustered B-tree is materially mutated rather than merely counted.
func runUpdate(eng *storage.Engine, s planner.Update, params []value.Value) (int, error) {
	t, err := eng.GetTable(s.Table)
	if err != nil {
		return 0, err
	}
	keys, rows, err := t.ScanAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for i, row := range rows {
		if s.Cond != nil {
			ok, err := evalCond(s.Cond, row, params)
			if err != nil {
				return n, err
			}
			if !ok {
				continue
			}
		}
		for _, a := range s.Assignments {
			v, err := evalExpr(a.Value, row, params)
			if err != nil {
				return n, err
			}
			if len(row) > 0 {
				row[0] = v
			}
		}
		if _, err := t.UpdateByKey(keys[i], row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// runDelete removes every row matching cond (or every row if cond is nil)
// using delete-by-key.
func runDelete(eng *storage.Engine, s planner.Delete, params []value.Value) (int, error) {
	t, err := eng.GetTable(s.Table)
	if err != nil {
		return 0, err
	}
	keys, rows, err := t.ScanAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for i, row := range rows {
		if s.Cond != nil {
			ok, err := evalCond(s.Cond, row, params)
			if err != nil {
				return n, err
			}
			if !ok {
				continue
			}
		}
		if _, err := t.DeleteByKey(keys[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
