package storage

import (
	"github.com/relite/relite/internal/btree"
	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

// Table owns one B-tree and a monotonically increasing row-id counter.
// Insertion assigns key = next_row_id, then increments it; keys are unique
// and dense in insertion order.
type Table struct {
	Name      string
	Schema    TableSchema
	bt        *btree.BTree
	nextRowID uint64
}

func newTable(p *pager.Pager, name string, schema TableSchema) (*Table, error) {
	bt, err := btree.Create(p)
	if err != nil {
		return nil, err
	}
	return &Table{Name: name, Schema: schema, bt: bt}, nil
}

// Insert assigns the row the next row id and stores it, returning the
// assigned key.
func (t *Table) Insert(row value.Row) (uint64, error) {
	key := t.nextRowID
	if err := t.bt.Insert(key, row); err != nil {
		return 0, err
	}
	t.nextRowID++
	return key, nil
}

// Get performs a point lookup by row id.
func (t *Table) Get(key uint64) (value.Row, bool, error) {
	return t.bt.Get(key)
}

// ScanAll returns every row in ascending key order, each deep-cloned.
func (t *Table) ScanAll() ([]uint64, []value.Row, error) {
	return t.bt.ScanAll()
}

// UpdateByKey replaces the row stored at key.
func (t *Table) UpdateByKey(key uint64, row value.Row) (bool, error) {
	return t.bt.UpdateByKey(key, row)
}

// DeleteByKey removes the row stored at key.
func (t *Table) DeleteByKey(key uint64) (bool, error) {
	return t.bt.DeleteByKey(key)
}
