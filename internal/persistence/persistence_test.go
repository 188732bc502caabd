package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/weathermesh/wxfabric/internal/codec"
)

type fakeStore struct {
	records []*codec.Record
	loaded  []*codec.Record
}

func (f *fakeStore) Snapshot() []*codec.Record { return f.records }
func (f *fakeStore) LoadSnapshot(records []*codec.Record) {
	f.loaded = records
}

func TestFlushReportsExistedBefore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather_data.json")

	store := &fakeStore{records: []*codec.Record{recordFixture()}}

	existed, err := Flush(store, path)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if existed {
		t.Error("expected existedBefore=false on first flush")
	}

	existed, err = Flush(store, path)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !existed {
		t.Error("expected existedBefore=true on second flush")
	}
}

func TestFlushThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather_data.json")

	store := &fakeStore{records: []*codec.Record{recordFixture()}}
	if _, err := Flush(store, path); err != nil {
		t.Fatalf("flush: %v", err)
	}

	restored := &fakeStore{}
	if err := Load(restored, path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(restored.loaded) != 1 {
		t.Fatalf("got %d loaded records, want 1", len(restored.loaded))
	}
	if id, _ := restored.loaded[0].Get("id"); id != "A" {
		t.Errorf("got id %q, want A", id)
	}
}

func TestLoadToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.json")

	restored := &fakeStore{}
	if err := Load(restored, path); err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if restored.loaded != nil {
		t.Error("expected LoadSnapshot not to be called for a missing file")
	}
}

func TestLoadReturnsErrorOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather_data.json")
	if err := os.WriteFile(path, []byte("not an array"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	restored := &fakeStore{}
	if err := Load(restored, path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestFlushLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather_data.json")

	store := &fakeStore{records: []*codec.Record{recordFixture()}}
	if _, err := Flush(store, path); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected the temp file to be gone after a successful flush")
	}
}

func recordFixture() *codec.Record {
	r := codec.NewRecord()
	r.Set("id", "A")
	r.Set("temperature", "25")
	r.Set("lamportClock", "3")
	return r
}
