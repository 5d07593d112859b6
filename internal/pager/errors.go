package pager

import "errors"

// Error kinds returned by the Pager and its WAL.
var (
	// ErrPageNotCached is returned by MarkDirty when the page id is not in
	// the buffer pool.
	ErrPageNotCached = errors.New("pager: page not cached")

	// ErrShortWrite is returned when a write to the database file writes
	// fewer bytes than requested, and by Get when a full page read from the
	// file fails its checksum.
	ErrShortWrite = errors.New("pager: short write")

	// ErrNoActiveTransaction is returned by WAL Commit/Rollback/PageWrite
	// when called while the WAL is Idle, or for the wrong txn id.
	ErrNoActiveTransaction = errors.New("pager: no active transaction")

	// ErrTransactionAlreadyActive is returned by WAL.Begin when called
	// while already Active.
	ErrTransactionAlreadyActive = errors.New("pager: transaction already active")
)
