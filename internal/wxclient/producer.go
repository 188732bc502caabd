package wxclient

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/weathermesh/wxfabric/internal/codec"
	"github.com/weathermesh/wxfabric/internal/lamport"
	"github.com/weathermesh/wxfabric/internal/retry"
	"github.com/weathermesh/wxfabric/pkg/log"
)

// UpdateInterval is the period between producer PUT cycles.
const UpdateInterval = 10 * time.Second

// ParseReadingFile reads a line-oriented "key: value" file (split on the
// first ':' only, both sides trimmed; empty or malformed lines are
// skipped) and returns the record it describes. Only the first ':' on a
// line separates key from value, so a value that itself contains ':'
// (for example "note: 12:30pm") is kept whole.
func ParseReadingFile(path string) (*codec.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wxclient: open %s: %w", path, err)
	}
	defer f.Close()

	rec := codec.NewRecord()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" || value == "" {
			continue
		}
		rec.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wxclient: read %s: %w", path, err)
	}

	if _, ok := rec.Get("id"); !ok {
		return nil, fmt.Errorf("wxclient: %s has no 'id' line", path)
	}

	return rec, nil
}

// Producer periodically reads a reading file and PUTs it to an
// aggregator, retrying each cycle's PUT per the shared bounded-retry
// policy.
type Producer struct {
	Client     doer
	Clock      *lamport.Clock
	ServerURL  string
	FilePath   string
	Iterations int // < 0 means run forever
}

// Run drives the producer loop until ctx is cancelled or Iterations
// cycles have completed (when Iterations >= 0).
func (p *Producer) Run(ctx context.Context) error {
	for cycle := 0; p.Iterations < 0 || cycle < p.Iterations; cycle++ {
		if err := p.runCycle(ctx); err != nil {
			log.Warnf("producer: cycle %d abandoned: %s", cycle, err)
		}

		if p.Iterations >= 0 && cycle == p.Iterations-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(UpdateInterval):
		}
	}
	return nil
}

func (p *Producer) runCycle(ctx context.Context) error {
	rec, err := ParseReadingFile(p.FilePath)
	if err != nil {
		return err
	}

	url := WeatherURL(p.ServerURL, "")
	body, err := codec.EncodeObject(rec)
	if err != nil {
		return fmt.Errorf("wxclient: encode reading: %w", err)
	}

	return retry.Bounded(ctx, "producer put", func(attempt int) error {
		resp, err := send(ctx, p.Client, p.Clock, http.MethodPut, url, body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if !isSuccess(http.MethodPut, resp.StatusCode) {
			return fmt.Errorf("wxclient: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}
