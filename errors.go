package relite

import (
	"errors"

	"github.com/relite/relite/internal/btree"
	"github.com/relite/relite/internal/exec"
	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/sql"
	"github.com/relite/relite/internal/storage"
)

// ErrorCode is a stable, small integer error taxonomy for callers who want
// to switch on outcome without depending on Go error wrapping chains.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeError
	CodeBusy
	CodeLocked
	CodeNoMem
	CodeReadOnly
	CodeMisuse
	CodeNoLFS
	CodeAuth
	CodeFormat
	CodeRange
	CodeNotADB
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeError:
		return "ERROR"
	case CodeBusy:
		return "BUSY"
	case CodeLocked:
		return "LOCKED"
	case CodeNoMem:
		return "NOMEM"
	case CodeReadOnly:
		return "READONLY"
	case CodeMisuse:
		return "MISUSE"
	case CodeNoLFS:
		return "NOLFS"
	case CodeAuth:
		return "AUTH"
	case CodeFormat:
		return "FORMAT"
	case CodeRange:
		return "RANGE"
	case CodeNotADB:
		return "NOTADB"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrClosed is returned by any Connection method called after Close.
	ErrClosed = errors.New("relite: connection closed")
	// ErrNoActiveTransaction mirrors the WAL's state-machine error at the
	// Connection boundary.
	ErrNoActiveTransaction = errors.New("relite: no active transaction")
	// ErrTransactionAlreadyActive mirrors the WAL's state-machine error at
	// the Connection boundary.
	ErrTransactionAlreadyActive = errors.New("relite: transaction already active")
)

// Code maps any error produced by this module's internal packages to a
// stable ErrorCode, per the runtime surface's error taxonomy. MISUSE means
// a null/invalid handle; RANGE means parameter index out of bounds; FORMAT
// means on-disk structure inconsistency.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	switch {
	case errors.Is(err, ErrClosed):
		return CodeMisuse
	case errors.Is(err, ErrUnsupportedPageSize):
		return CodeFormat
	case errors.Is(err, exec.ErrInvalidParameterIndex):
		return CodeRange
	case errors.Is(err, btree.ErrOrderMismatch), errors.Is(err, btree.ErrInvalidValueType):
		return CodeFormat
	case errors.Is(err, pager.ErrShortWrite):
		return CodeFormat
	case errors.Is(err, pager.ErrNoActiveTransaction), errors.Is(err, ErrNoActiveTransaction):
		return CodeMisuse
	case errors.Is(err, pager.ErrTransactionAlreadyActive), errors.Is(err, ErrTransactionAlreadyActive):
		return CodeBusy
	case errors.Is(err, storage.ErrTableNotFound):
		return CodeError
	case errors.Is(err, storage.ErrTableAlreadyExists):
		return CodeError
	case errors.Is(err, storage.ErrUniqueConstraintViolation):
		return CodeError
	case errors.Is(err, sql.ErrUnexpectedToken),
		errors.Is(err, sql.ErrUnexpectedCharacter),
		errors.Is(err, sql.ErrUnterminatedString),
		errors.Is(err, sql.ErrExpectedIdentifier),
		errors.Is(err, sql.ErrExpectedValue),
		errors.Is(err, sql.ErrExpectedOperator),
		errors.Is(err, sql.ErrExpectedNumber),
		errors.Is(err, sql.ErrUnknownDataType):
		return CodeError
	case errors.Is(err, exec.ErrUnsupportedFeature):
		return CodeError
	default:
		return CodeError
	}
}
