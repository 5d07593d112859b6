package relite

import (
	"github.com/relite/relite/internal/exec"
	"github.com/relite/relite/internal/value"
)

// Value is the tagged union of data relite stores and evaluates: Integer,
// Real, Text, Blob, or Null. It is re-exported here so callers outside
// this module can construct values to bind into prepared statements
// without reaching into an internal package.
type Value = value.Value

// Result is the outcome of running a statement: the rows it produced (for
// SELECT) and the count of rows it touched (for INSERT/UPDATE/DELETE/
// CREATE TABLE).
type Result = exec.Result

// Null, Int, Real, Text, and Blob construct Values of each kind.
func Null() Value          { return value.Null() }
func Int(i int64) Value    { return value.Int(i) }
func Real(f float64) Value { return value.Real(f) }
func Text(s string) Value  { return value.Text(s) }
func Blob(b []byte) Value  { return value.Blob(b) }
