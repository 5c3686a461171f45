// Package stream provides JSONL streaming to/from zip archives.
package stream

import (
	"archive/zip"
	"encoding/json"
	"io"
)

// Writer streams records of type T as JSONL into a zip archive entry.
type Writer[T any] struct {
	enc   *json.Encoder
	count int
}

// NewWriter creates a JSONL writer for a path within the zip.
func NewWriter[T any](zw *zip.Writer, path string) (*Writer[T], error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}
	return newWriter[T](w), nil
}

func newWriter[T any](w io.Writer) *Writer[T] {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer[T]{enc: enc}
}

// Write encodes a single record as a JSON line.
func (w *Writer[T]) Write(v T) error {
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteAll writes every record in vs.
func (w *Writer[T]) WriteAll(vs []T) error {
	for _, v := range vs {
		if err := w.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Count returns records written so far.
func (w *Writer[T]) Count() int {
	return w.count
}
