// Package persistence implements atomic whole-store snapshot
// write/read: the canonical file is always replaced in one rename, so
// the only durability boundary is "rename = commit".
package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/weathermesh/wxfabric/internal/codec"
)

// Store is the subset of wxstore.Store that persistence needs, kept as
// an interface so this package does not import wxstore directly.
type Store interface {
	Snapshot() []*codec.Record
	LoadSnapshot(records []*codec.Record)
}

// Flush serializes store's current contents and atomically replaces
// path with the result: write to a sibling temp file, fsync, then
// rename over the canonical path. It reports whether path existed
// before this call, which the HTTP surface needs to pick 200 vs 201.
func Flush(store Store, path string) (existedBefore bool, err error) {
	_, statErr := os.Stat(path)
	existedBefore = statErr == nil

	records := store.Snapshot()
	text, err := codec.EncodeArray(records)
	if err != nil {
		return existedBefore, fmt.Errorf("persistence: encode snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return existedBefore, fmt.Errorf("persistence: open temp file: %w", err)
	}

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return existedBefore, fmt.Errorf("persistence: write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return existedBefore, fmt.Errorf("persistence: fsync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return existedBefore, fmt.Errorf("persistence: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return existedBefore, fmt.Errorf("persistence: rename into place: %w", err)
	}

	return existedBefore, nil
}

// Load reads path, if present, as an array of records in the restricted
// dialect and calls store.LoadSnapshot with the result. A missing file
// is not an error - the store simply starts empty. A parse error is
// returned to the caller to log; the store is left untouched so the
// process continues with an empty Store, per the read-path contract.
func Load(store Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("persistence: read %s: %w", path, err)
	}

	records, err := codec.DecodeArray(string(data))
	if err != nil {
		return fmt.Errorf("persistence: parse %s: %w", path, err)
	}

	store.LoadSnapshot(records)
	return nil
}

// CanonicalPath resolves name relative to the process's working
// directory, matching the "single file next to the process" contract.
func CanonicalPath(name string) (string, error) {
	return filepath.Abs(name)
}
