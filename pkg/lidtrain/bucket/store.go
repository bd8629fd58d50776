package bucket

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Partition maps a term to one of n buckets. xxhash64 is a fixed,
// portable byte-level hash, so the assignment is identical across
// processes, restarts and independent implementations.
func Partition(term []byte, n int) int {
	return int(xxhash.Sum64(term) % uint64(n))
}

// Ranges partitions a contiguous key space 0..total-1 into buckets
// of a fixed size, the last bucket possibly shorter. Used for
// feature-id bucket assignment during training, where exact
// reconstruction of a dense sub-matrix per bucket is required.
type Ranges struct {
	total int
	size  int
}

// NewRanges creates a range partition of total keys into buckets of
// the given size
func NewRanges(total, size int) Ranges {
	if size < 1 {
		size = 1
	}
	return Ranges{total: total, size: size}
}

// Count returns the number of buckets
func (r Ranges) Count() int {
	if r.total == 0 {
		return 0
	}
	return (r.total + r.size - 1) / r.size
}

// Bucket returns the bucket owning key id
func (r Ranges) Bucket(id int) int {
	return id / r.size
}

// Base returns the first key id of a bucket
func (r Ranges) Base(bucket int) int {
	return bucket * r.size
}

// Len returns the number of keys in a bucket
func (r Ranges) Len(bucket int) int {
	n := r.total - r.Base(bucket)
	if n > r.size {
		n = r.size
	}
	return n
}

// Store is a set of bucket directories under one root. Workers
// append records through per-chunk Writers, so no two workers ever
// share a file; consolidation later reads whole directories.
type Store struct {
	root string
	dirs []string
}

// Create makes n bucket directories under root
func Create(root string, n int) (*Store, error) {
	if n < 1 {
		return nil, fmt.Errorf("create store: need at least one bucket, got %d", n)
	}
	dirs := make([]string, n)
	for i := range dirs {
		dirs[i] = filepath.Join(root, fmt.Sprintf("bucket-%04d", i))
		if err := os.MkdirAll(dirs[i], 0o755); err != nil {
			return nil, fmt.Errorf("create bucket dir: %w", err)
		}
	}
	return &Store{root: root, dirs: dirs}, nil
}

// Count returns the number of buckets
func (s *Store) Count() int {
	return len(s.dirs)
}

// Dir returns the directory of bucket i
func (s *Store) Dir(i int) string {
	return s.dirs[i]
}

// Writers opens one Writer per bucket for a single chunk's output.
// The chunk id is embedded in the file name, which keeps the file
// private to the producing worker. The caller owns closing them.
func (s *Store) Writers(chunkID int, suffix string) ([]*Writer, error) {
	writers := make([]*Writer, len(s.dirs))
	for i, dir := range s.dirs {
		name := fmt.Sprintf("chunk-%06d%s", chunkID, suffix)
		w, err := NewWriter(filepath.Join(dir, name))
		if err != nil {
			for _, open := range writers[:i] {
				open.Close()
			}
			return nil, err
		}
		writers[i] = w
	}
	return writers, nil
}

// CloseAll closes every writer, returning the first error
func CloseAll(writers []*Writer) error {
	var first error
	for _, w := range writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadDir streams every record from the files with the given suffix
// in one bucket directory, in file-name order, and returns how many
// records were decoded. Any decode failure other than clean end of
// stream aborts with the underlying error.
func ReadDir(dir, suffix string, fn func(Record) error) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read bucket dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == suffix {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var count int64
	for _, name := range names {
		r, err := NewReader(filepath.Join(dir, name))
		if err != nil {
			return count, err
		}
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				r.Close()
				return count, err
			}
			if err := fn(rec); err != nil {
				r.Close()
				return count, err
			}
			count++
		}
		if err := r.Close(); err != nil {
			return count, fmt.Errorf("close record file: %w", err)
		}
	}
	return count, nil
}

// Remove deletes the store root and everything under it
func (s *Store) Remove() error {
	return os.RemoveAll(s.root)
}
