package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrTerminalState is returned when a status update targets a log that
	// already reached SUCCESS or FAILED.
	ErrTerminalState = errors.New("status log already terminal")
)
