package storage

import "github.com/relite/relite/internal/value"

// ColumnType is one of the four storable column types.
type ColumnType uint8

const (
	TypeInteger ColumnType = iota
	TypeText
	TypeReal
	TypeBlob
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeText:
		return "TEXT"
	case TypeReal:
		return "REAL"
	case TypeBlob:
		return "BLOB"
	default:
		return "UNKNOWN"
	}
}

// Default describes a column's DEFAULT clause: either absent, a literal
// value, or a function call preserved verbatim. It is stored with the
// schema only; INSERT does not evaluate or apply defaults.
type Default struct {
	HasDefault bool
	Literal    value.Value
	FuncName   string
	FuncArgs   []value.Value
	IsFunc     bool
}

// Column describes one table column.
type Column struct {
	Name         string
	Type         ColumnType
	IsPrimaryKey bool
	IsNullable   bool
	Default      Default
}

// TableSchema is an ordered sequence of Columns.
type TableSchema struct {
	Columns []Column
}

// IndexOf returns the position of a column by name, or -1 if absent. Name
// resolution beyond column 0 is not yet wired into expression evaluation
// (see the execution engine), but the schema itself carries full column
// order so that work has somewhere to land.
func (s TableSchema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
