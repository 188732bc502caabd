package wxclient

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weathermesh/wxfabric/internal/codec"
	"github.com/weathermesh/wxfabric/internal/lamport"
)

func TestNormalizeBaseURLAddsScheme(t *testing.T) {
	got := NormalizeBaseURL("localhost:4567")
	if got != "http://localhost:4567" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeBaseURLKeepsExistingScheme(t *testing.T) {
	got := NormalizeBaseURL("https://example.com/")
	if got != "https://example.com" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeBaseURLCollapsesDoubleSlashes(t *testing.T) {
	got := NormalizeBaseURL("http://example.com//weather")
	if got != "http://example.com/weather" {
		t.Errorf("got %q", got)
	}
}

func TestWeatherURLAddsStationQuery(t *testing.T) {
	got := WeatherURL("localhost:4567", "station one")
	if got != "http://localhost:4567/weather.json?station=station+one" {
		t.Errorf("got %q", got)
	}
}

func TestParseReadingFileSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reading.txt")
	content := "id: A\nnot a valid line\ntemperature: 25\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rec, err := ParseReadingFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, _ := rec.Get("id"); id != "A" {
		t.Errorf("got id %q, want A", id)
	}
	if temp, _ := rec.Get("temperature"); temp != "25" {
		t.Errorf("got temperature %q, want 25", temp)
	}
}

func TestParseReadingFileRequiresID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reading.txt")
	if err := os.WriteFile(path, []byte("temperature: 25\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := ParseReadingFile(path); err == nil {
		t.Error("expected an error for a file with no id")
	}
}

func TestParseReadingFileSplitsOnFirstColonOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reading.txt")
	if err := os.WriteFile(path, []byte("id: A\nnote: 12:30pm\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rec, err := ParseReadingFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := rec.Get("note"); v != "12:30pm" {
		t.Errorf("got note %q, want everything after the first colon kept intact", v)
	}
}

// fakeTransport lets tests script a sequence of canned responses for
// doer.Do without opening a real socket.
type fakeTransport struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func newResponse(status int, body string, lamportHeader string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	if lamportHeader != "" {
		resp.Header.Set("X-Lamport-Clock", lamportHeader)
	}
	return resp
}

func TestConsumerFetchMergesResponseClock(t *testing.T) {
	transport := &fakeTransport{
		responses: []*http.Response{
			newResponse(http.StatusOK, `{"id":"A","temperature":"25"}`, "50"),
		},
		errs: []error{nil},
	}

	clock := &lamport.Clock{}
	c := &Consumer{Client: transport, Clock: clock, ServerURL: "localhost:4567", StationID: "A"}

	rec, ok, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if id, _ := rec.Get("id"); id != "A" {
		t.Errorf("got id %q, want A", id)
	}
	if clock.Current() <= 50 {
		t.Errorf("expected clock to have merged past 50, got %d", clock.Current())
	}
}

func TestConsumerFetchReportsNoDataOn204(t *testing.T) {
	transport := &fakeTransport{
		responses: []*http.Response{newResponse(http.StatusNoContent, "", "")},
		errs:      []error{nil},
	}

	c := &Consumer{Client: transport, Clock: &lamport.Clock{}, ServerURL: "localhost:4567"}
	_, ok, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a 204 response")
	}
}

func TestPrettyPrintHidesLamportClock(t *testing.T) {
	rec := codec.NewRecord()
	rec.Set("id", "A")
	rec.Set("lamportClock", "5")
	rec.Set("temperature", "25")

	out := PrettyPrint(rec)
	if strings.Contains(out, "lamportClock") {
		t.Errorf("expected lamportClock to be hidden, got: %s", out)
	}
	if !strings.Contains(out, "temperature: 25") {
		t.Errorf("expected temperature field, got: %s", out)
	}
}
