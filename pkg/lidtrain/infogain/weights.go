package infogain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteWeights writes a diagnostic weight report: one tab-separated
// (quoted-token, score) row per term, sorted descending by score.
func WriteWeights(path string, weights []Weight) error {
	rows := Top(weights, len(weights))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weight report: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", strconv.Quote(row.Term), strconv.FormatFloat(row.Score, 'g', -1, 64))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write weight report: %w", err)
	}
	return f.Close()
}

// WriteFeatures writes the selected-feature file: one quoted token
// per line. Tokens are arbitrary byte strings; quoting keeps the
// file text-safe.
func WriteFeatures(path string, features []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, feat := range features {
		fmt.Fprintln(w, strconv.Quote(feat))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write feature file: %w", err)
	}
	return f.Close()
}

// ReadFeatures reads a selected-feature file back, consuming each
// line verbatim as one vocabulary token
func ReadFeatures(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature file: %w", err)
	}
	defer f.Close()

	var features []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		feat, err := strconv.Unquote(line)
		if err != nil {
			return nil, fmt.Errorf("parse feature %q: %w", line, err)
		}
		features = append(features, feat)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feature file: %w", err)
	}
	return features, nil
}
