// Package ingest validates documents and loads conversation transcripts
// from the formats chat tools export.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 is returned for input that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("input is not valid UTF-8")
	// ErrTooLarge is returned when input exceeds the configured byte limit.
	ErrTooLarge = errors.New("input exceeds size limit")
)

// CheckText validates s as a document. max <= 0 disables the size check.
func CheckText(s string, max int) error {
	if max > 0 && len(s) > max {
		return fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(s), max)
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	return nil
}

// ReadDocument reads at most max bytes from r and validates the result.
func ReadDocument(r io.Reader, max int) (string, error) {
	if max > 0 {
		r = io.LimitReader(r, int64(max)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	s := string(data)
	if err := CheckText(s, max); err != nil {
		return "", err
	}
	return s, nil
}

// ReadDocumentFile reads a document from path, or from stdin when path is "-".
func ReadDocumentFile(path string, max int) (string, error) {
	if path == "-" {
		return ReadDocument(os.Stdin, max)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return ReadDocument(f, max)
}

// WriteJSON atomically writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename to final: %w", err)
	}
	return nil
}
