package database

import "errors"

var (
	ErrEmptyTable        = errors.New("database: table name cannot be empty")
	ErrEmptyKeyName      = errors.New("database: key name cannot be empty")
	ErrEmptyElements     = errors.New("database: element list cannot be empty")
	ErrHeterogeneousKind = errors.New("database: elements must share the same primitive kind")
)
