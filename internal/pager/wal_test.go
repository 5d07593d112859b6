package pager

import (
	"path/filepath"
	"testing"
)

func TestWAL_BeginCommitRollback_StateMachine(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(filepath.Join(dir, "t.wal"))
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer w.Close()

	txID, err := w.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := w.Begin(); err == nil {
		t.Fatal("expected ErrTransactionAlreadyActive on nested Begin")
	}
	if err := w.Commit(txID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Commit(txID); err == nil {
		t.Fatal("expected ErrNoActiveTransaction committing twice")
	}

	txID2, err := w.Begin()
	if err != nil {
		t.Fatalf("Begin 2: %v", err)
	}
	if err := w.Rollback(txID2); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
}

func TestWAL_Recover_AppliesOnlyCommittedTransactions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recover.wal")
	w, err := OpenWAL(path)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}

	committedTx, _ := w.Begin()
	if err := w.PageWrite(committedTx, 1, 0, make([]byte, 4), []byte("abcd")); err != nil {
		t.Fatalf("PageWrite: %v", err)
	}
	if err := w.Commit(committedTx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rolledBackTx, _ := w.Begin()
	if err := w.PageWrite(rolledBackTx, 2, 0, make([]byte, 4), []byte("wxyz")); err != nil {
		t.Fatalf("PageWrite: %v", err)
	}
	if err := w.Rollback(rolledBackTx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	danglingTx, _ := w.Begin()
	if err := w.PageWrite(danglingTx, 3, 0, make([]byte, 4), []byte("nope")); err != nil {
		t.Fatalf("PageWrite: %v", err)
	}
	// No Commit or Rollback for danglingTx: simulates a crash mid-transaction.

	applied := map[PageID][]byte{}
	apply := func(id PageID, offset uint32, newBytes []byte) error {
		applied[id] = append([]byte(nil), newBytes...)
		return nil
	}
	if err := w.Recover(apply); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if string(applied[1]) != "abcd" {
		t.Fatalf("committed transaction's write should be replayed, got %q", applied[1])
	}
	if _, ok := applied[2]; ok {
		t.Fatal("rolled-back transaction's write should not be replayed")
	}
	if _, ok := applied[3]; ok {
		t.Fatal("a transaction with no terminator should not be replayed")
	}
	w.Close()
}

func TestWAL_Recover_AdvancesTxnIDPastMaxObserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.wal")
	w, err := OpenWAL(path)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	tx1, _ := w.Begin()
	w.Commit(tx1)
	tx2, _ := w.Begin()
	w.Commit(tx2)
	w.Close()

	w2, err := OpenWAL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()
	if err := w2.Recover(func(PageID, uint32, []byte) error { return nil }); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	tx3, err := w2.Begin()
	if err != nil {
		t.Fatalf("Begin after recover: %v", err)
	}
	if tx3 <= tx2 {
		t.Fatalf("txn id after recovery (%d) should exceed the highest recovered id (%d)", tx3, tx2)
	}
}

func TestPager_AttachedWAL_CommitIsDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "txn.db")
	walPath := filepath.Join(dir, "txn.db.wal")

	p, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w, err := OpenWAL(walPath)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	p.AttachWAL(w)

	txID, err := w.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	p.BeginTxn(txID)
	id := p.Allocate()
	buf := make([]byte, PageSize)
	copy(buf, []byte("committed"))
	if err := p.WritePage(id, buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := w.Commit(txID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	p.EndTxn()
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	p.Close()
	w.Close()

	// Simulate a crash before the WAL was truncated: reopen and replay.
	p2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen pager: %v", err)
	}
	defer p2.Close()
	w2, err := OpenWAL(walPath)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w2.Close()
	if err := w2.Recover(p2.ApplyRecoveredPageWrite); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	pg, err := p2.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(pg.Bytes[:9]) != "committed" {
		t.Fatalf("got %q, want committed", pg.Bytes[:9])
	}
}

func TestPager_RollbackDiscardsUnflushedPages(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rb.db")
	walPath := filepath.Join(dir, "rb.db.wal")

	p, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()
	w, err := OpenWAL(walPath)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer w.Close()
	p.AttachWAL(w)

	// Commit an initial page so there is a known-good baseline on disk.
	tx1, _ := w.Begin()
	p.BeginTxn(tx1)
	id := p.Allocate()
	base := make([]byte, PageSize)
	copy(base, []byte("baseline!"))
	if err := p.WritePage(id, base); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	w.Commit(tx1)
	p.EndTxn()
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Start a second transaction that overwrites the page, then roll back.
	tx2, _ := w.Begin()
	p.BeginTxn(tx2)
	mutated := make([]byte, PageSize)
	copy(mutated, []byte("mutated!!"))
	if err := p.WritePage(id, mutated); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := w.Rollback(tx2); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	p.DiscardTxnPages()

	pg, err := p.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(pg.Bytes[:9]) != "baseline!" {
		t.Fatalf("got %q, want baseline! after rollback", pg.Bytes[:9])
	}
}
