package pager

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// RecordKind identifies a WAL entry kind.
type RecordKind uint8

const (
	RecordBegin RecordKind = iota
	RecordPageWrite
	RecordCommit
	RecordRollback
)

func (k RecordKind) String() string {
	switch k {
	case RecordBegin:
		return "BEGIN"
	case RecordPageWrite:
		return "PAGE_WRITE"
	case RecordCommit:
		return "COMMIT"
	case RecordRollback:
		return "ROLLBACK"
	default:
		return fmt.Sprintf("RecordKind(%d)", uint8(k))
	}
}

// Record is one WAL log entry: { kind, txn_id, page_id, offset, old_bytes,
// new_bytes }.
type Record struct {
	Kind   RecordKind
	TxnID  uint64
	PageID PageID
	Offset uint32
	Old    []byte
	New    []byte
}

// recordHeaderSize is kind:u8 + txn_id:u64 + page_id:u32 + offset:u32 +
// old_len:u32 + new_len:u32.
const recordHeaderSize = 1 + 8 + 4 + 4 + 4 + 4

func marshalRecord(r *Record) []byte {
	buf := make([]byte, recordHeaderSize+len(r.Old)+len(r.New))
	buf[0] = byte(r.Kind)
	binary.LittleEndian.PutUint64(buf[1:9], r.TxnID)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(r.PageID))
	binary.LittleEndian.PutUint32(buf[13:17], r.Offset)
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(r.Old)))
	binary.LittleEndian.PutUint32(buf[21:25], uint32(len(r.New)))
	n := recordHeaderSize
	copy(buf[n:], r.Old)
	n += len(r.Old)
	copy(buf[n:], r.New)
	return buf
}

// unmarshalRecord reads one record from r. io.EOF (clean or mid-header) and
// any short read of the payload are treated as "no more complete records" —
// a torn write at the tail of the WAL is silently discarded.
func unmarshalRecord(r io.Reader) (*Record, error) {
	var hdr [recordHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, io.EOF
	}
	oldLen := binary.LittleEndian.Uint32(hdr[17:21])
	newLen := binary.LittleEndian.Uint32(hdr[21:25])
	rec := &Record{
		Kind:   RecordKind(hdr[0]),
		TxnID:  binary.LittleEndian.Uint64(hdr[1:9]),
		PageID: PageID(binary.LittleEndian.Uint32(hdr[9:13])),
		Offset: binary.LittleEndian.Uint32(hdr[13:17]),
	}
	if oldLen > 0 {
		rec.Old = make([]byte, oldLen)
		if _, err := io.ReadFull(r, rec.Old); err != nil {
			return nil, io.EOF
		}
	}
	if newLen > 0 {
		rec.New = make([]byte, newLen)
		if _, err := io.ReadFull(r, rec.New); err != nil {
			return nil, io.EOF
		}
	}
	return rec, nil
}

// walState is the WAL's Idle/Active state machine.
type walState int

const (
	walIdle walState = iota
	walActive
)

// WAL is the append-only log file backing atomic transactions for a single
// disk-backed Pager.
type WAL struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	state     walState
	activeTx  uint64
	nextTxnID uint64 // monotonically increasing per-connection counter, starts at 1
}

// OpenWAL opens or creates the WAL file at path. txn_id numbering restarts
// at 1 for every OpenWAL call.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open WAL %s: %w", path, err)
	}
	return &WAL{f: f, path: path, state: walIdle, nextTxnID: 1}, nil
}

// Path returns the WAL file's path.
func (w *WAL) Path() string { return w.path }

// Begin starts a new transaction, appending a Begin record. Fails if a
// transaction is already active.
func (w *WAL) Begin() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == walActive {
		return 0, fmt.Errorf("pager: %w", ErrTransactionAlreadyActive)
	}
	txID := w.nextTxnID
	w.nextTxnID++
	if err := w.appendLocked(&Record{Kind: RecordBegin, TxnID: txID}); err != nil {
		return 0, err
	}
	w.state = walActive
	w.activeTx = txID
	return txID, nil
}

// PageWrite logs a page mutation within the active transaction.
func (w *WAL) PageWrite(txID uint64, pageID PageID, offset uint32, old, new []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != walActive || w.activeTx != txID {
		return fmt.Errorf("pager: %w", ErrNoActiveTransaction)
	}
	return w.appendLocked(&Record{
		Kind: RecordPageWrite, TxnID: txID, PageID: pageID, Offset: offset,
		Old: old, New: new,
	})
}

// Commit appends a Commit record and fsyncs the WAL file before returning,
// making the transaction durable.
func (w *WAL) Commit(txID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != walActive || w.activeTx != txID {
		return fmt.Errorf("pager: %w", ErrNoActiveTransaction)
	}
	if err := w.appendLocked(&Record{Kind: RecordCommit, TxnID: txID}); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("pager: WAL fsync on commit: %w", err)
	}
	w.state = walIdle
	w.activeTx = 0
	return nil
}

// Rollback appends a Rollback record. No durability guarantee is required
// for rollback records.
func (w *WAL) Rollback(txID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != walActive || w.activeTx != txID {
		return fmt.Errorf("pager: %w", ErrNoActiveTransaction)
	}
	if err := w.appendLocked(&Record{Kind: RecordRollback, TxnID: txID}); err != nil {
		return err
	}
	w.state = walIdle
	w.activeTx = 0
	return nil
}

func (w *WAL) appendLocked(rec *Record) error {
	buf := marshalRecord(rec)
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("pager: WAL seek: %w", err)
	}
	n, err := w.f.Write(buf)
	if err != nil {
		return fmt.Errorf("pager: WAL append: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("pager: WAL append: %w", ErrShortWrite)
	}
	return nil
}

// Truncate resets the WAL file to empty, used after a successful checkpoint.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return fmt.Errorf("pager: WAL truncate: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pager: WAL seek: %w", err)
	}
	return nil
}

// Close closes the underlying WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ApplyFunc writes new bytes at offset within the given page during
// recovery.
type ApplyFunc func(pageID PageID, offset uint32, newBytes []byte) error

// Recover scans the WAL from the beginning, grouping records by
// transaction. Transactions that end in Commit have their PageWrite entries'
// new_bytes applied via apply, in log order; transactions that end in
// Rollback or have no terminator (a torn tail) are skipped. It also moves
// the WAL's next txn_id past the highest txn_id observed, so numbering
// resumes after it.
func (w *WAL) Recover(apply ApplyFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pager: WAL seek: %w", err)
	}

	type txn struct {
		writes    []*Record
		committed bool
		rolledBk  bool
	}
	txns := make(map[uint64]*txn)
	var order []uint64
	var maxTxnID uint64

	for {
		rec, err := unmarshalRecord(w.f)
		if err != nil {
			break // clean EOF or a torn trailing record — stop here
		}
		if rec.TxnID > maxTxnID {
			maxTxnID = rec.TxnID
		}
		t, ok := txns[rec.TxnID]
		if !ok {
			t = &txn{}
			txns[rec.TxnID] = t
			order = append(order, rec.TxnID)
		}
		switch rec.Kind {
		case RecordPageWrite:
			t.writes = append(t.writes, rec)
		case RecordCommit:
			t.committed = true
		case RecordRollback:
			t.rolledBk = true
		}
	}

	for _, id := range order {
		t := txns[id]
		if !t.committed || t.rolledBk {
			continue
		}
		for _, rec := range t.writes {
			if err := apply(rec.PageID, rec.Offset, rec.New); err != nil {
				return fmt.Errorf("pager: WAL replay txn %d page %d: %w", id, rec.PageID, err)
			}
		}
	}

	if maxTxnID >= w.nextTxnID {
		w.nextTxnID = maxTxnID + 1
	}
	return nil
}
