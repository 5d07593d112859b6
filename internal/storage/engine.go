// Package storage holds the set of named tables and their schemas on top of
// a shared Pager. Each table owns one B-tree and a monotonically increasing
// next-row-id counter.
package storage

import (
	"fmt"
	"sync"

	"github.com/relite/relite/internal/pager"
)

// Engine owns a pager and a name → Table mapping. Table names are unique
// and owned by the engine.
type Engine struct {
	mu        sync.RWMutex
	pager     *pager.Pager
	tables    map[string]*Table
	splitHook func()
}

// NewEngine wraps a Pager in a fresh, empty Engine.
func NewEngine(p *pager.Pager) *Engine {
	return &Engine{pager: p, tables: make(map[string]*Table)}
}

// Pager returns the engine's shared pager.
func (e *Engine) Pager() *pager.Pager { return e.pager }

// SetSplitHook installs a callback invoked whenever any table's B-tree
// splits a node, for metrics. Must be called before CreateTable/Bootstrap/
// LoadCatalog to cover every table the engine goes on to open.
func (e *Engine) SetSplitHook(h func()) { e.splitHook = h }

// CreateTable registers a new table. If ifNotExists is true and a table by
// this name already exists, CreateTable is a silent no-op; otherwise a
// duplicate name is an error.
func (e *Engine) CreateTable(name string, schema TableSchema, ifNotExists bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tables[name]; exists {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("storage: table %q: %w", name, ErrTableAlreadyExists)
	}
	t, err := newTable(e.pager, name, schema)
	if err != nil {
		return err
	}
	t.bt.SetSplitHook(e.splitHook)
	e.tables[name] = t
	return nil
}

// GetTable returns the named table, or ErrTableNotFound.
func (e *Engine) GetTable(name string) (*Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tables[name]
	if !ok {
		return nil, fmt.Errorf("storage: table %q: %w", name, ErrTableNotFound)
	}
	return t, nil
}

// DropTable removes a table and frees its schema and B-tree reference. The
// underlying pages are not reclaimed (there is no free-page manager in this
// engine).
func (e *Engine) DropTable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tables[name]; !ok {
		return fmt.Errorf("storage: table %q: %w", name, ErrTableNotFound)
	}
	delete(e.tables, name)
	return nil
}

// TableNames returns every registered table name, in no particular order.
func (e *Engine) TableNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	return names
}
