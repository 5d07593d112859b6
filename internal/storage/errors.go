package storage

import "errors"

var (
	ErrTableNotFound          = errors.New("storage: table not found")
	ErrTableAlreadyExists     = errors.New("storage: table already exists")
	ErrUniqueConstraintViolation = errors.New("storage: unique constraint violation")
)
