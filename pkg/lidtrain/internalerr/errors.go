package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrCorruptRecord = errors.New("corrupt record")
	ErrTooManyStates = errors.New("too many automaton states")
	ErrEmptyKeyword  = errors.New("empty keyword")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoDocuments   = errors.New("no documents")
	ErrShortRead     = errors.New("fewer records read than written")
)
