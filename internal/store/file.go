package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/pretty"

	"github.com/wonny/movers/internal/movers"
)

// FileStore keeps the artifact as a single JSON document on disk.
// ⭐ SSOT: data.json 쓰기는 여기서만
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the artifact location
func (s *FileStore) Path() string {
	return s.path
}

// LoadLast reads the artifact. A missing file is not an error.
func (s *FileStore) LoadLast(_ context.Context) (*movers.MarketSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var snapshot movers.MarketSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", s.path, err)
	}
	return &snapshot, nil
}

// Save replaces the artifact atomically: the document is written to a
// temporary file in the same directory and renamed over the target.
func (s *FileStore) Save(_ context.Context, snapshot *movers.MarketSnapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Encode renders a snapshot as the artifact document: two-space indent,
// non-ASCII text kept as UTF-8.
func Encode(snapshot *movers.MarketSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snapshot); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{
		Width:  80,
		Indent: "  ",
	}), nil
}
