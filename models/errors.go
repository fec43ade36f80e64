package models

import "errors"

// Store-level sentinel errors shared by every persistence backend.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)
