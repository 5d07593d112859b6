package relite

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/relite/relite/internal/exec"
	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/planner"
	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/storage"
	"github.com/relite/relite/internal/value"
)

// Connection is the façade binding a storage engine and an optional WAL.
// It is the entry point for Execute/Prepare and Begin/Commit/Rollback. A
// Connection is not safe for concurrent use from multiple goroutines;
// callers serialize externally.
type Connection struct {
	id      string
	mem     bool
	pager   *pager.Pager
	wal     *pager.WAL
	engine  *storage.Engine
	metrics *Metrics
	log     *logger
	inTxn   bool
	txnID   uint64
	closed  bool
}

// Open opens (or creates) a disk-backed database at path, with a write-
// ahead log at path+".wal" unless cfg.WALPath overrides it, applying cfg's
// cache tuning and reporting to m if non-nil.
func Open(path string, cfg EngineConfig, m *Metrics) (*Connection, error) {
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.apply(p); err != nil {
		return nil, err
	}

	conn := &Connection{id: uuid.NewString(), pager: p, metrics: m}
	conn.log = newLogger(conn.id, nil)
	conn.wireObservability()

	walPath := cfg.WALPath
	if walPath == "" {
		walPath = path + ".wal"
	}
	w, err := pager.OpenWAL(walPath)
	if err != nil {
		return nil, err
	}
	p.AttachWAL(w)
	conn.wal = w

	conn.log.Infof("recovering WAL %s", walPath)
	if err := w.Recover(p.ApplyRecoveredPageWrite); err != nil {
		return nil, fmt.Errorf("relite: recover %s: %w", path, err)
	}
	conn.log.Infof("WAL recovery complete")
	if err := p.SyncFile(); err != nil {
		return nil, err
	}
	if err := w.Truncate(); err != nil {
		return nil, err
	}

	conn.engine = storage.NewEngine(p)
	wireSplitHook(conn.engine, m)
	if p.NextPageID() == storage.CatalogPageID {
		if err := conn.engine.Bootstrap(); err != nil {
			return nil, err
		}
	} else {
		if err := conn.engine.LoadCatalog(); err != nil {
			return nil, err
		}
	}
	conn.log.Infof("opened %s", path)
	return conn, nil
}

// OpenMemory opens an in-memory database: no file, no WAL. Begin/Commit/
// Rollback are accepted but are no-ops.
func OpenMemory(cfg EngineConfig, m *Metrics) *Connection {
	p := pager.OpenMemory()
	// OpenMemory returns no error, so apply's error is discarded: a
	// mismatched cfg.PageSize is ignored here, and because apply returns
	// before setting the cache limits, cfg's cache tuning is then not
	// applied either.
	_ = cfg.apply(p)

	conn := &Connection{id: uuid.NewString(), mem: true, pager: p, metrics: m}
	conn.log = newLogger(conn.id, nil)
	conn.wireObservability()
	conn.engine = storage.NewEngine(p)
	wireSplitHook(conn.engine, m)
	// A memory pager always starts empty, so Bootstrap cannot fail on a
	// catalog-page-id mismatch the way a corrupt disk file could.
	_ = conn.engine.Bootstrap()
	conn.log.Infof("opened in-memory connection")
	return conn
}

// wireObservability installs the pager-level cache and eviction hooks that
// feed both this connection's logger and its optional Metrics.
func (c *Connection) wireObservability() {
	c.pager.SetCacheStatsHooks(
		func() {
			if c.metrics != nil {
				c.metrics.onHit()
			}
		},
		func() {
			if c.metrics != nil {
				c.metrics.onMiss()
			}
		},
	)
	c.pager.SetEvictHook(func(wroteBack bool) {
		if c.metrics != nil {
			c.metrics.onEvict(wroteBack)
		}
		c.log.Debugf("evicted page wroteBack=%v", wroteBack)
	})
}

func wireSplitHook(eng *storage.Engine, m *Metrics) {
	if m == nil {
		return
	}
	eng.SetSplitHook(func() { m.btreeSplits.Inc() })
}

func (c *Connection) checkOpen() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Execute parses, plans, and runs sql against the connection, with no bound
// parameters.
func (c *Connection) Execute(sqlText string) (*exec.Result, error) {
	return c.ExecuteParams(sqlText, nil)
}

// ExecuteParams is Execute with bound parameter values substituted for
// ParamExpr(i) nodes in the plan. A bare call (outside an explicit Begin)
// on a disk-backed connection is wrapped in an implicit transaction so
// every statement is durable on return, mirroring autocommit mode; a
// caller inside an explicit transaction just adds to it.
func (c *Connection) ExecuteParams(sqlText string, params []value.Value) (*exec.Result, error) {
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

	implicit := !c.mem && !c.inTxn
	if implicit {
		if err := c.Begin(); err != nil {
			return nil, err
		}
	}

	res, err := exec.Run(steps, c.engine, params)
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
	} else if containsMutation(steps) {
		if err := c.engine.SaveCatalog(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func containsMutation(steps []planner.Step) bool {
	for _, s := range steps {
		switch s.(type) {
		case planner.Insert, planner.CreateTable, planner.Update, planner.Delete:
			return true
		}
	}
	return false
}

// Begin starts a transaction. In-memory connections accept it silently.
func (c *Connection) Begin() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.mem {
		return nil
	}
	if c.inTxn {
		return ErrTransactionAlreadyActive
	}
	txID, err := c.wal.Begin()
	if err != nil {
		return err
	}
	c.pager.BeginTxn(txID)
	c.inTxn = true
	c.txnID = txID
	c.log.Debugf("begin txn %d", txID)
	return nil
}

// Commit commits the active transaction: appends a WAL commit record,
// fsyncs the WAL, then flushes dirty pages to the main file and the
// catalog alongside them.
func (c *Connection) Commit() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.mem {
		return nil
	}
	if !c.inTxn {
		return ErrNoActiveTransaction
	}
	if err := c.wal.Commit(c.txnID); err != nil {
		c.log.Errorf("commit txn %d: %v", c.txnID, err)
		return err
	}
	c.pager.EndTxn()
	c.inTxn = false
	if c.metrics != nil {
		c.metrics.walCommits.Inc()
	}
	if err := c.engine.SaveCatalog(); err != nil {
		return err
	}
	c.log.Debugf("commit txn %d", c.txnID)
	return c.pager.Flush()
}

// Rollback discards the active transaction's page writes. Because pages
// written mid-transaction were never flushed to the main file, discarding
// the cached copies is sufficient to undo them.
func (c *Connection) Rollback() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.mem {
		return nil
	}
	if !c.inTxn {
		return ErrNoActiveTransaction
	}
	if err := c.wal.Rollback(c.txnID); err != nil {
		return err
	}
	c.pager.DiscardTxnPages()
	c.pager.EndTxn()
	c.log.Warnf("rolled back txn %d", c.txnID)
	c.inTxn = false
	if c.metrics != nil {
		c.metrics.walRollbacks.Inc()
	}
	return nil
}

// Close flushes the pager, closes the WAL, and releases the connection.
// Subsequent calls to any Connection method return ErrClosed.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Infof("closing connection")
	if !c.mem {
		if err := c.engine.SaveCatalog(); err != nil {
			return err
		}
	}
	if err := c.pager.Close(); err != nil {
		return err
	}
	if c.wal != nil {
		return c.wal.Close()
	}
	return nil
}
