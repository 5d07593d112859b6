package pager

import (
	"fmt"
	"os"
)

// cacheEntry is a page plus its position in the LRU doubly-linked list.
// head = MRU end, tail = LRU end (evicted first).
type cacheEntry struct {
	page       *Page
	prev, next *cacheEntry
}

// EvictHook is invoked whenever the buffer pool evicts a page, recording
// whether the evicted page had to be written back. Used to feed the
// optional Prometheus metrics in the root package; nil is a valid no-op.
type EvictHook func(wroteBack bool)

// Pager owns the database file (if any) and a bounded LRU cache of pages.
// A Pager with a nil file is an in-memory pager: Flush and eviction
// write-back are no-ops.
type Pager struct {
	file       *os.File
	path       string
	nextPageID PageID

	cache          map[PageID]*cacheEntry
	lruHead        *cacheEntry
	lruTail        *cacheEntry
	maxCachedPages int
	evictionTarget int

	wal      *WAL
	txnID    uint64
	inTxn    bool
	txnPages map[PageID]struct{} // pages written during the active txn

	onEvict  EvictHook
	onHit    func()
	onMiss   func()
}

// Open opens (or creates) a disk-backed Pager at path. next_page_id is
// inferred from the file length.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pager: stat %s: %w", path, err)
	}
	next := PageID(fi.Size()/PageSize + 1)
	return newPager(f, path, next), nil
}

// OpenMemory creates an in-memory Pager with no backing file.
func OpenMemory() *Pager {
	return newPager(nil, "", 1)
}

func newPager(f *os.File, path string, next PageID) *Pager {
	return &Pager{
		file:           f,
		path:           path,
		nextPageID:     next,
		cache:          make(map[PageID]*cacheEntry),
		maxCachedPages: MaxCachedPages,
		evictionTarget: EvictionTarget,
	}
}

// NextPageID returns the page id that the next Allocate call will assign.
// A value of 1 means no page has ever been allocated — useful to tell a
// brand-new database apart from one being reopened.
func (p *Pager) NextPageID() PageID { return p.nextPageID }

// SetCacheLimits overrides the default buffer-pool capacity/target — used
// by tests exercising eviction behavior and by EngineConfig.
func (p *Pager) SetCacheLimits(maxPages, target int) {
	p.maxCachedPages = maxPages
	p.evictionTarget = target
}

// SetEvictHook installs a callback invoked on every eviction.
func (p *Pager) SetEvictHook(h EvictHook) { p.onEvict = h }

// SetCacheStatsHooks installs callbacks invoked on cache hit/miss, for
// metrics.
func (p *Pager) SetCacheStatsHooks(onHit, onMiss func()) {
	p.onHit = onHit
	p.onMiss = onMiss
}

// AttachWAL wires a WAL into the pager so page writes made while a
// transaction is active are logged before being cached.
func (p *Pager) AttachWAL(w *WAL) { p.wal = w }

// IsMemory reports whether this pager has no backing file.
func (p *Pager) IsMemory() bool { return p.file == nil }

// Path returns the database file path ("" for in-memory pagers).
func (p *Pager) Path() string { return p.path }

// ── Allocation ──────────────────────────────────────────────────────────

// Allocate returns a freshly zeroed page with a new id, caches it dirty,
// and never returns page id 0.
func (p *Pager) Allocate() PageID {
	id := p.nextPageID
	p.nextPageID++
	pg := newZeroPage(id)
	pg.Dirty = true
	p.insertCache(pg)
	if p.inTxn {
		p.txnPages[id] = struct{}{}
	}
	return id
}

// ── Reads ───────────────────────────────────────────────────────────────

// Get returns the page with the given id, reading it from the file on a
// cache miss. A short read (including reading past EOF) zero-fills the
// remainder of the page.
func (p *Pager) Get(id PageID) (*Page, error) {
	if e, ok := p.cache[id]; ok {
		p.moveToFront(e)
		if p.onHit != nil {
			p.onHit()
		}
		return e.page, nil
	}
	if p.onMiss != nil {
		p.onMiss()
	}

	buf := make([]byte, PageSize)
	if p.file != nil {
		off := int64(id-1) * int64(PageSize)
		n, err := p.file.ReadAt(buf, off)
		if err != nil && n < PageSize && !isEOF(err) {
			return nil, fmt.Errorf("pager: read page %d: %w", id, err)
		}
		// A short read (n < PageSize, including n == 0 past EOF) leaves the
		// remainder zero-filled, which is already the case for a fresh
		// buffer — only a full page read carries a checksum to verify.
		if n == PageSize && !isAllZero(buf) && !verifyChecksum(buf) {
			return nil, fmt.Errorf("pager: page %d: %w", id, ErrShortWrite)
		}
	}
	pg := &Page{ID: id, Bytes: buf}
	p.insertCache(pg)
	return pg, nil
}

func isEOF(err error) bool {
	return err != nil && err.Error() == "EOF"
}

// ── Writes ──────────────────────────────────────────────────────────────

// MarkDirty marks a cached page dirty. Returns ErrPageNotCached if id is
// not currently cached.
func (p *Pager) MarkDirty(id PageID) error {
	e, ok := p.cache[id]
	if !ok {
		return fmt.Errorf("pager: mark dirty %d: %w", id, ErrPageNotCached)
	}
	e.page.Dirty = true
	return nil
}

// WritePage replaces the full contents of page id with newBytes (which
// must be PageSize long, checksum included) and marks it dirty. If a
// transaction is active and a WAL is attached, the old/new page images are
// logged to the WAL first. Used by the B-tree to persist a serialized node.
func (p *Pager) WritePage(id PageID, newBytes []byte) error {
	if len(newBytes) != PageSize {
		return fmt.Errorf("pager: write page %d: wrong buffer size %d", id, len(newBytes))
	}
	if p.inTxn && p.wal != nil {
		old, err := p.Get(id)
		if err != nil {
			return err
		}
		oldCopy := append([]byte(nil), old.Bytes...)
		newCopy := append([]byte(nil), newBytes...)
		if err := p.wal.PageWrite(p.txnID, id, 0, oldCopy, newCopy); err != nil {
			return err
		}
	}

	e, ok := p.cache[id]
	if !ok {
		pg := &Page{ID: id, Bytes: make([]byte, PageSize)}
		p.insertCache(pg)
		e = p.cache[id]
	} else {
		p.moveToFront(e)
	}
	copy(e.page.Bytes, newBytes)
	e.page.Dirty = true
	if p.inTxn {
		p.txnPages[id] = struct{}{}
	}
	return nil
}

// Flush writes every dirty page to its offset in the file, clears dirty
// flags, and fsyncs. A no-op for in-memory pagers.
func (p *Pager) Flush() error {
	if p.file == nil {
		for _, e := range p.cache {
			e.page.Dirty = false
		}
		return nil
	}
	for id, e := range p.cache {
		if !e.page.Dirty {
			continue
		}
		if err := p.writeThrough(id, e.page.Bytes); err != nil {
			return err
		}
		e.page.Dirty = false
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: fsync: %w", err)
	}
	return nil
}

func (p *Pager) writeThrough(id PageID, buf []byte) error {
	setChecksum(buf)
	off := int64(id-1) * int64(PageSize)
	n, err := p.file.WriteAt(buf, off)
	if err != nil {
		return fmt.Errorf("pager: write page %d: %w", id, err)
	}
	if n != len(buf) {
		return fmt.Errorf("pager: write page %d: %w", id, ErrShortWrite)
	}
	return nil
}

// ApplyRecoveredPageWrite writes newBytes at offset within page id directly
// to the backing file, bypassing the cache and WAL. Used only during WAL
// replay on open.
func (p *Pager) ApplyRecoveredPageWrite(id PageID, offset uint32, newBytes []byte) error {
	if p.file == nil {
		return nil
	}
	buf := make([]byte, PageSize)
	off := int64(id-1) * int64(PageSize)
	n, err := p.file.ReadAt(buf, off)
	if err != nil && n == 0 && !isEOF(err) {
		return fmt.Errorf("pager: recover read page %d: %w", id, err)
	}
	copy(buf[offset:], newBytes)
	setChecksum(buf)
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("pager: recover write page %d: %w", id, err)
	}
	if id >= p.nextPageID {
		p.nextPageID = id + 1
	}
	return nil
}

// SyncFile fsyncs the backing file; a no-op for in-memory pagers. Used
// after WAL recovery to make replayed writes durable before truncating
// the WAL.
func (p *Pager) SyncFile() error {
	if p.file == nil {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: fsync: %w", err)
	}
	return nil
}

// ── Transactions ────────────────────────────────────────────────────────

// BeginTxn marks txnID as the active transaction for subsequent WritePage
// calls to log against.
func (p *Pager) BeginTxn(txnID uint64) {
	p.inTxn = true
	p.txnID = txnID
	p.txnPages = make(map[PageID]struct{})
}

// EndTxn clears the active transaction marker (used after commit).
func (p *Pager) EndTxn() {
	p.inTxn = false
	p.txnID = 0
	p.txnPages = nil
}

// DiscardTxnPages evicts every page written during the active transaction
// from the cache without writing them back, so a subsequent Get re-reads
// the pre-transaction contents from the file (which was never flushed
// mid-transaction). Used on rollback.
func (p *Pager) DiscardTxnPages() {
	for id := range p.txnPages {
		if e, ok := p.cache[id]; ok {
			e.page.Dirty = false
			p.unlink(e)
			delete(p.cache, id)
		}
	}
	p.EndTxn()
}

// ── Close ───────────────────────────────────────────────────────────────

// Close flushes dirty pages and closes the backing file.
func (p *Pager) Close() error {
	if err := p.Flush(); err != nil {
		return err
	}
	if p.file == nil {
		return nil
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("pager: close: %w", err)
	}
	return nil
}

// ── LRU bookkeeping ─────────────────────────────────────────────────────

func (p *Pager) insertCache(pg *Page) {
	e := &cacheEntry{page: pg}
	p.cache[pg.ID] = e
	p.pushFront(e)
	if len(p.cache) > p.maxCachedPages {
		p.evictTo(p.evictionTarget)
	}
}

func (p *Pager) evictTo(target int) {
	for len(p.cache) > target {
		victim := p.lruTail
		if victim == nil {
			return
		}
		wroteBack := false
		if victim.page.Dirty && p.file != nil {
			_ = p.writeThrough(victim.page.ID, victim.page.Bytes)
			wroteBack = true
		}
		p.unlink(victim)
		delete(p.cache, victim.page.ID)
		if p.onEvict != nil {
			p.onEvict(wroteBack)
		}
	}
}

func (p *Pager) pushFront(e *cacheEntry) {
	e.prev = nil
	e.next = p.lruHead
	if p.lruHead != nil {
		p.lruHead.prev = e
	}
	p.lruHead = e
	if p.lruTail == nil {
		p.lruTail = e
	}
}

func (p *Pager) unlink(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		p.lruHead = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		p.lruTail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (p *Pager) moveToFront(e *cacheEntry) {
	if p.lruHead == e {
		return
	}
	p.unlink(e)
	p.pushFront(e)
}
