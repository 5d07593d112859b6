package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relite/relite/internal/btree"
	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

// CatalogPageID is the reserved page holding the serialized table catalog.
// It is always the first page allocated for a fresh engine, so that
// reopening a disk-backed database can find its tables again. Schema
// persistence beyond this — migrations, ALTER TABLE, catalog versioning —
// is out of scope; this is only enough bookkeeping to make closing and
// reopening a database round-trip its tables (see DESIGN.md).
const CatalogPageID = pager.PageID(1)

const (
	catTagNull    byte = 0
	catTagInteger byte = 1
	catTagReal    byte = 2
	catTagText    byte = 3
	catTagBlob    byte = 4
)

// Bootstrap claims CatalogPageID for a brand new (empty) pager and writes
// an empty catalog to it.
func (e *Engine) Bootstrap() error {
	id := e.pager.Allocate()
	if id != CatalogPageID {
		return fmt.Errorf("storage: expected catalog page %d, got %d", CatalogPageID, id)
	}
	return e.SaveCatalog()
}

// LoadCatalog reads CatalogPageID and reconstructs the table map, reopening
// each table's B-tree at its recorded root page.
func (e *Engine) LoadCatalog() error {
	pg, err := e.pager.Get(CatalogPageID)
	if err != nil {
		return fmt.Errorf("storage: load catalog: %w", err)
	}
	buf := pg.Bytes
	off := 0
	count := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4

	tables := make(map[string]*Table, count)
	for i := 0; i < count; i++ {
		name, newOff := readString(buf, off)
		off = newOff
		root := pager.PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		nextRowID := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		colCount := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		cols := make([]Column, colCount)
		for j := 0; j < colCount; j++ {
			col, newOff, err := readColumn(buf, off)
			if err != nil {
				return err
			}
			off = newOff
			cols[j] = col
		}
		bt := btree.Open(e.pager, root)
		bt.SetSplitHook(e.splitHook)
		tables[name] = &Table{
			Name:      name,
			Schema:    TableSchema{Columns: cols},
			bt:        bt,
			nextRowID: nextRowID,
		}
	}
	e.mu.Lock()
	e.tables = tables
	e.mu.Unlock()
	return nil
}

// SaveCatalog serializes the current table map back to CatalogPageID. It
// must be called before the connection closes, or the catalog written at
// Bootstrap/last-save time is stale.
func (e *Engine) SaveCatalog() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	buf := make([]byte, pager.PageSize)
	limit := len(buf) - 4
	off := 4
	n := 0
	for name, t := range e.tables {
		start := off
		var err error
		off, err = writeString(buf, off, limit, name)
		if err != nil {
			return err
		}
		if off+4+8+4 > limit {
			return fmt.Errorf("storage: catalog page overflow")
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(t.bt.Root()))
		off += 4
		binary.LittleEndian.PutUint64(buf[off:off+8], t.nextRowID)
		off += 8
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(t.Schema.Columns)))
		off += 4
		for _, col := range t.Schema.Columns {
			off, err = writeColumn(buf, off, limit, col)
			if err != nil {
				return err
			}
		}
		_ = start
		n++
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	return e.pager.WritePage(CatalogPageID, buf)
}

func readString(buf []byte, off int) (string, int) {
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	s := string(buf[off : off+n])
	return s, off + n
}

func writeString(buf []byte, off, limit int, s string) (int, error) {
	if off+4+len(s) > limit {
		return 0, fmt.Errorf("storage: catalog page overflow")
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(s)))
	off += 4
	copy(buf[off:], s)
	return off + len(s), nil
}

func readColumn(buf []byte, off int) (Column, int, error) {
	name, off2 := readString(buf, off)
	off = off2
	typ := ColumnType(buf[off])
	off++
	isPK := buf[off] == 1
	off++
	isNullable := buf[off] == 1
	off++
	hasDefault := buf[off] == 1
	off++
	col := Column{Name: name, Type: typ, IsPrimaryKey: isPK, IsNullable: isNullable}
	if hasDefault {
		isFunc := buf[off] == 1
		off++
		if isFunc {
			fname, off2 := readString(buf, off)
			off = off2
			argCount := int(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
			args := make([]value.Value, argCount)
			for i := 0; i < argCount; i++ {
				v, newOff, err := readCatValue(buf, off)
				if err != nil {
					return Column{}, 0, err
				}
				off = newOff
				args[i] = v
			}
			col.Default = Default{HasDefault: true, IsFunc: true, FuncName: fname, FuncArgs: args}
		} else {
			v, newOff, err := readCatValue(buf, off)
			if err != nil {
				return Column{}, 0, err
			}
			off = newOff
			col.Default = Default{HasDefault: true, Literal: v}
		}
	}
	return col, off, nil
}

func writeColumn(buf []byte, off, limit int, col Column) (int, error) {
	var err error
	off, err = writeString(buf, off, limit, col.Name)
	if err != nil {
		return 0, err
	}
	if off+4 > limit {
		return 0, fmt.Errorf("storage: catalog page overflow")
	}
	buf[off] = byte(col.Type)
	off++
	buf[off] = boolByte(col.IsPrimaryKey)
	off++
	buf[off] = boolByte(col.IsNullable)
	off++
	buf[off] = boolByte(col.Default.HasDefault)
	off++
	if col.Default.HasDefault {
		if off+1 > limit {
			return 0, fmt.Errorf("storage: catalog page overflow")
		}
		buf[off] = boolByte(col.Default.IsFunc)
		off++
		if col.Default.IsFunc {
			off, err = writeString(buf, off, limit, col.Default.FuncName)
			if err != nil {
				return 0, err
			}
			if off+4 > limit {
				return 0, fmt.Errorf("storage: catalog page overflow")
			}
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(col.Default.FuncArgs)))
			off += 4
			for _, arg := range col.Default.FuncArgs {
				off, err = writeCatValue(buf, off, limit, arg)
				if err != nil {
					return 0, err
				}
			}
		} else {
			off, err = writeCatValue(buf, off, limit, col.Default.Literal)
			if err != nil {
				return 0, err
			}
		}
	}
	return off, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeCatValue(buf []byte, off, limit int, v value.Value) (int, error) {
	if off+1 > limit {
		return 0, fmt.Errorf("storage: catalog page overflow")
	}
	switch v.Kind {
	case value.KindNull:
		buf[off] = catTagNull
		off++
	case value.KindInteger:
		buf[off] = catTagInteger
		off++
		if off+8 > limit {
			return 0, fmt.Errorf("storage: catalog page overflow")
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v.Integer))
		off += 8
	case value.KindReal:
		buf[off] = catTagReal
		off++
		if off+8 > limit {
			return 0, fmt.Errorf("storage: catalog page overflow")
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v.Real))
		off += 8
	case value.KindText, value.KindBlob:
		if v.Kind == value.KindText {
			buf[off] = catTagText
		} else {
			buf[off] = catTagBlob
		}
		off++
		var err error
		off, err = writeString(buf, off, limit, string(v.Bytes))
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("storage: cannot persist default value kind %s", v.Kind)
	}
	return off, nil
}

func readCatValue(buf []byte, off int) (value.Value, int, error) {
	tag := buf[off]
	off++
	switch tag {
	case catTagNull:
		return value.Null(), off, nil
	case catTagInteger:
		i := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		return value.Int(i), off + 8, nil
	case catTagReal:
		bits := binary.LittleEndian.Uint64(buf[off : off+8])
		return value.Real(math.Float64frombits(bits)), off + 8, nil
	case catTagText:
		s, newOff := readString(buf, off)
		return value.Text(s), newOff, nil
	case catTagBlob:
		s, newOff := readString(buf, off)
		return value.Blob([]byte(s)), newOff, nil
	default:
		return value.Value{}, 0, fmt.Errorf("storage: catalog: bad value tag %d", tag)
	}
}
