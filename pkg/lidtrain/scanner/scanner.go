package scanner

import (
	"fmt"

	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
)

const alphabetSize = 256

// MaxStates bounds the compiled automaton. Next-state indices are
// stored as uint16, so state ids must fit in 0..65535.
const MaxStates = 1 << 16

// Scanner is a compiled Aho-Corasick automaton over a fixed keyword
// set. Scanning performs exactly one table lookup per input byte;
// there is no backtracking and no failure-link chasing at match time.
// A Scanner is immutable once built.
type Scanner struct {
	table   []uint16
	outputs map[int][]int
	states  int
}

// Build constructs a Scanner recognizing the given keywords. The
// result recognizes the same language regardless of keyword order;
// each match reports the keyword's index in the input slice.
func Build(keywords [][]byte) (*Scanner, error) {
	b, err := newBuilder(keywords)
	if err != nil {
		return nil, err
	}
	return b.compile(), nil
}

// NumStates returns the number of states in the compiled automaton
func (s *Scanner) NumStates() int {
	return s.states
}

// Table returns the dense transition table, indexed by
// state*256 + byte. The caller must not modify it.
func (s *Scanner) Table() []uint16 {
	return s.table
}

// Outputs maps each accepting state to the indices of the keywords
// recognized on entering it, failure-chain closure included. The
// caller must not modify it.
func (s *Scanner) Outputs() map[int][]int {
	return s.outputs
}

// Scan walks data through the automaton and calls fn for every
// keyword occurrence, in stream order. end is the position just past
// the occurrence's last byte. Scanning stops early if fn returns
// false.
func (s *Scanner) Scan(data []byte, fn func(keyword, end int) bool) {
	state := 0
	for i, c := range data {
		state = int(s.table[state*alphabetSize+int(c)])
		for _, k := range s.outputs[state] {
			if !fn(k, i+1) {
				return
			}
		}
	}
}

// StateCounts tallies how often each state is entered while scanning
// data. counts must have length NumStates and is not reset first.
// Keyword occurrence counts are recovered afterwards by walking
// Outputs, which amortizes the output lookup over the whole scan.
func (s *Scanner) StateCounts(data []byte, counts []int64) {
	state := 0
	for _, c := range data {
		state = int(s.table[state*alphabetSize+int(c)])
		counts[state]++
	}
}

// builder holds the uncompiled trie, failure links and output sets.
// It is kept separate from Scanner so the direct goto/failure
// simulation stays available as a reference for the compiled table.
type builder struct {
	edges []map[byte]int
	fail  []int
	out   map[int][]int
	order []int // breadth-first state order, root excluded
}

func newBuilder(keywords [][]byte) (*builder, error) {
	b := &builder{
		edges: []map[byte]int{{}},
		out:   make(map[int][]int),
	}

	for i, kw := range keywords {
		if len(kw) == 0 {
			return nil, fmt.Errorf("keyword %d: %w", i, internalerr.ErrEmptyKeyword)
		}
		state := 0
		for _, c := range kw {
			next, ok := b.edges[state][c]
			if !ok {
				next = len(b.edges)
				b.edges[state][c] = next
				b.edges = append(b.edges, map[byte]int{})
			}
			state = next
		}
		b.out[state] = append(b.out[state], i)
	}

	// The cap must be enforced before any scanning can begin
	if len(b.edges) > MaxStates {
		return nil, fmt.Errorf("%d states exceeds %d: %w", len(b.edges), MaxStates, internalerr.ErrTooManyStates)
	}

	b.computeFail()
	return b, nil
}

// computeFail assigns the failure function by breadth-first
// traversal and folds each state's failure-chain outputs into its
// own output set. Bytes are visited in value order so the traversal,
// and with it every compiled artifact, is deterministic.
func (b *builder) computeFail() {
	b.fail = make([]int, len(b.edges))

	var queue []int
	for c := 0; c < alphabetSize; c++ {
		if s, ok := b.edges[0][byte(c)]; ok {
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		b.order = append(b.order, r)

		for c := 0; c < alphabetSize; c++ {
			s, ok := b.edges[r][byte(c)]
			if !ok {
				continue
			}
			f := b.fail[r]
			for {
				if next, ok := b.edges[f][byte(c)]; ok {
					b.fail[s] = next
					break
				}
				if f == 0 {
					b.fail[s] = 0
					break
				}
				f = b.fail[f]
			}
			if inherited := b.out[b.fail[s]]; len(inherited) > 0 {
				b.out[s] = append(b.out[s], inherited...)
			}
			queue = append(queue, s)
		}
	}
}

// compile flattens goto and failure into one dense transition table.
// Rows are filled in breadth-first order so every failure row is
// complete before the rows that reference it.
func (b *builder) compile() *Scanner {
	n := len(b.edges)
	table := make([]uint16, n*alphabetSize)

	for c := 0; c < alphabetSize; c++ {
		if s, ok := b.edges[0][byte(c)]; ok {
			table[c] = uint16(s)
		}
	}
	for _, r := range b.order {
		base := r * alphabetSize
		fbase := b.fail[r] * alphabetSize
		for c := 0; c < alphabetSize; c++ {
			if s, ok := b.edges[r][byte(c)]; ok {
				table[base+c] = uint16(s)
			} else {
				table[base+c] = table[fbase+c]
			}
		}
	}

	outputs := make(map[int][]int, len(b.out))
	for s, kws := range b.out {
		cp := make([]int, len(kws))
		copy(cp, kws)
		outputs[s] = cp
	}

	return &Scanner{table: table, outputs: outputs, states: n}
}

// simulate matches data against the uncompiled trie with failure
// links, chasing the failure chain on missing edges. It must produce
// the identical match sequence as the compiled table.
func (b *builder) simulate(data []byte, fn func(keyword, end int) bool) {
	state := 0
	for i, c := range data {
		for {
			if next, ok := b.edges[state][c]; ok {
				state = next
				break
			}
			if state == 0 {
				break
			}
			state = b.fail[state]
		}
		for _, k := range b.out[state] {
			if !fn(k, i+1) {
				return
			}
		}
	}
}
