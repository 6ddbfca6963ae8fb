// Package store implements a generic, per-entity-type durable table backed
// by a delimited flat file.
//
// Row encoding is injected per entity type, so the same file mechanics serve
// prompts, accounts, and email configurations without duplicating I/O logic.
// The in-memory row list is the source of truth; Save rewrites the whole
// file, and callers save after each logical mutation to bound data loss.
package store

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// fieldSep separates fields within a row. The ASCII unit separator is
	// reserved: it cannot be produced by speech transcription or by typed
	// configuration values, so it never appears inside a field.
	fieldSep = "\x1f"

	// newlineMark stands in for a literal newline inside a field, keeping
	// one row on one line in the backing file. Decoded back on load.
	newlineMark = "\x1e\x1e"
)

// EncodeFunc turns an entity into its ordered field values.
type EncodeFunc[T any] func(T) []string

// DecodeFunc rebuilds an entity from its ordered field values. A returned
// error drops the row at load time without failing the open.
type DecodeFunc[T any] func([]string) (T, error)

// Store is a durable table of T. One instance owns one backing file; all
// operations are serialized by a single coarse lock.
type Store[T any] struct {
	mu      sync.Mutex
	path    string
	columns []string
	encode  EncodeFunc[T]
	decode  DecodeFunc[T]
	rows    []T
}

// Open loads the table at path, creating a header-only file if none exists.
//
// Every line after the header is split on the field separator. Lines whose
// field count does not match the column count, and lines the decoder
// rejects, are skipped so a partially corrupt file still opens. Failure to
// create or read the file returns an error and no store.
func Open[T any](path string, columns []string, encode EncodeFunc[T], decode DecodeFunc[T]) (*Store[T], error) {
	s := &Store[T]{
		path:    path,
		columns: columns,
		encode:  encode,
		decode:  decode,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte(s.header()+"\n"), 0o644); werr != nil {
			return nil, fmt.Errorf("creating table file: %w", werr)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening table file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, fieldSep)
		if len(fields) != len(columns) {
			slog.Debug("skipping malformed row", "path", path, "line", line, "fields", len(fields))
			continue
		}
		for i := range fields {
			fields[i] = strings.ReplaceAll(fields[i], newlineMark, "\n")
		}
		row, err := decode(fields)
		if err != nil {
			slog.Debug("skipping undecodable row", "path", path, "line", line, "error", err)
			continue
		}
		s.rows = append(s.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table file: %w", err)
	}
	return s, nil
}

// Create appends an entity to the in-memory list. Nothing touches disk
// until Save.
func (s *Store[T]) Create(entity T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, entity)
}

// QueryBy returns copies of every entity matching the predicate, in
// insertion order. No backing-store access.
func (s *Store[T]) QueryBy(pred func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, row := range s.rows {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out
}

// DeleteBy removes every entity matching the predicate and returns how many
// were removed. Deleting nothing is not an error.
func (s *Store[T]) DeleteBy(pred func(T) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	removed := 0
	for _, row := range s.rows {
		if pred(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed
}

// Len returns the number of stored entities.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Save rewrites the backing file from scratch: header line, then every
// surviving entity. Literal newlines inside fields are replaced by the
// reserved placeholder so they round-trip through Open. A failed write
// leaves the in-memory list untouched and authoritative.
func (s *Store[T]) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(s.header())
	sb.WriteByte('\n')
	for _, row := range s.rows {
		fields := s.encode(row)
		for i, field := range fields {
			if i > 0 {
				sb.WriteString(fieldSep)
			}
			field = strings.ReplaceAll(field, fieldSep, "")
			sb.WriteString(strings.ReplaceAll(field, "\n", newlineMark))
		}
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing table file: %w", err)
	}
	return nil
}

// ClearAll empties the in-memory list and deletes the backing file
// entirely. A subsequent Open on the same path recreates a fresh
// header-only file.
func (s *Store[T]) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing table file: %w", err)
	}
	return nil
}

func (s *Store[T]) header() string {
	return strings.Join(s.columns, fieldSep)
}
