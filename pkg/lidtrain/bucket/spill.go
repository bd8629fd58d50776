package bucket

import (
	"errors"
	"io"
)

// Spill is the single-writer, single-reader store variant: records
// are appended during a producer phase, then iterated exactly once.
// It bounds memory for intermediate tables that would otherwise
// accumulate in one process.
type Spill struct {
	path  string
	w     *Writer
	count int64
}

// NewSpill creates a spill file at path
func NewSpill(path string) (*Spill, error) {
	w, err := NewWriter(path)
	if err != nil {
		return nil, err
	}
	return &Spill{path: path, w: w}, nil
}

// Append adds one record. Must not be called after Iter.
func (s *Spill) Append(rec Record) error {
	if err := s.w.Append(rec); err != nil {
		return err
	}
	s.count++
	return nil
}

// Len returns the number of records appended
func (s *Spill) Len() int64 {
	return s.count
}

// Iter closes the write side and streams every record in append
// order. Decode failures abort; a clean end of stream does not.
func (s *Spill) Iter(fn func(Record) error) error {
	if s.w != nil {
		if err := s.w.Close(); err != nil {
			return err
		}
		s.w = nil
	}
	r, err := NewReader(s.path)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Close releases the write side without reading
func (s *Spill) Close() error {
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
