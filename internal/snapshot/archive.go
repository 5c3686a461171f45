package snapshot

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/memoraapp/memora/internal/snapshot/stream"
)

// FormatVersion is the archive format version. Increment major on breaking changes.
const FormatVersion = "1.0"

const manifestPath = "manifest.json"

// Manifest describes an archive's contents.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id,omitempty"`
	Source    string    `json:"source,omitempty"`
	Counts    Counts    `json:"counts"`
}

func groupPath(group string) string {
	return "data/" + group + ".jsonl"
}

// WriteArchive writes snap to a zip file at path: manifest.json plus one
// JSONL file per group. The file is written to a temporary name first and
// renamed once complete.
func WriteArchive(path string, snap *Snapshot, m Manifest) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp)

	m.Version = FormatVersion
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Counts = snap.Counts()

	if err := writeZip(f, snap, &m); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return &m, nil
}

func writeZip(w io.Writer, snap *Snapshot, m *Manifest) error {
	zw := zip.NewWriter(w)

	mw, err := zw.Create(manifestPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	steps := []struct {
		group string
		fn    func(*zip.Writer, string) error
	}{
		{GroupUsers, writeGroup(snap.Users)},
		{GroupCategories, writeGroup(snap.Categories)},
		{GroupCollections, writeGroup(snap.Collections)},
		{GroupCollectionDetails, writeGroup(snap.CollectionDetails)},
		{GroupPosts, writeGroup(snap.Posts)},
		{GroupComments, writeGroup(snap.Comments)},
		{GroupLikes, writeGroup(snap.Likes)},
		{GroupKnowledgeDocuments, writeGroup(snap.KnowledgeDocuments)},
		{GroupAttachments, writeGroup(snap.Attachments)},
	}
	for _, step := range steps {
		if err := step.fn(zw, groupPath(step.group)); err != nil {
			return fmt.Errorf("write %s: %w", step.group, err)
		}
	}

	return zw.Close()
}

func writeGroup[T any](records []T) func(*zip.Writer, string) error {
	return func(zw *zip.Writer, path string) error {
		w, err := stream.NewWriter[T](zw, path)
		if err != nil {
			return err
		}
		return w.WriteAll(records)
	}
}

// ReadArchive reads an archive written by WriteArchive. Records pass through
// the same normalization as remote payloads. Missing group files are empty
// groups; a line that fails to parse aborts the read.
func ReadArchive(path string) (*Snapshot, *Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	mf, err := stream.OpenFile(&zr.Reader, manifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	err = json.NewDecoder(mf).Decode(&m)
	mf.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	var raw Raw
	targets := []struct {
		group string
		dst   *json.RawMessage
	}{
		{GroupUsers, &raw.Users},
		{GroupCategories, &raw.Categories},
		{GroupCollections, &raw.Collections},
		{GroupCollectionDetails, &raw.CollectionDetails},
		{GroupPosts, &raw.Posts},
		{GroupComments, &raw.Comments},
		{GroupLikes, &raw.Likes},
		{GroupKnowledgeDocuments, &raw.KnowledgeDocuments},
		{GroupAttachments, &raw.Attachments},
	}
	for _, tgt := range targets {
		arr, err := readGroup(&zr.Reader, groupPath(tgt.group))
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", tgt.group, err)
		}
		*tgt.dst = arr
	}

	snap, err := FromRaw(raw)
	if err != nil {
		return nil, nil, err
	}
	return snap, &m, nil
}

// readGroup joins the JSONL records of one file into a JSON array.
func readGroup(zr *zip.Reader, path string) (json.RawMessage, error) {
	rc, err := stream.OpenFile(zr, path)
	if errors.Is(err, stream.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for rec, err := range stream.NewReader[json.RawMessage](rc).All() {
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n+1, err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(rec)
		n++
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
