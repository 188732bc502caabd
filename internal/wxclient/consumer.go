package wxclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/weathermesh/wxfabric/internal/codec"
	"github.com/weathermesh/wxfabric/internal/lamport"
	"github.com/weathermesh/wxfabric/internal/retry"
)

// Consumer issues a single retried GET against an aggregator and
// pretty-prints the result.
type Consumer struct {
	Client    doer
	Clock     *lamport.Clock
	ServerURL string
	StationID string
}

// Fetch runs the bounded-retry GET and returns the decoded record, or
// ok=false if the aggregator reported no data (204).
func (c *Consumer) Fetch(ctx context.Context) (rec *codec.Record, ok bool, err error) {
	url := WeatherURL(c.ServerURL, c.StationID)

	err = retry.Bounded(ctx, "consumer get", func(attempt int) error {
		resp, sendErr := send(ctx, c.Client, c.Clock, http.MethodGet, url, "")
		if sendErr != nil {
			return sendErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNoContent {
			ok = false
			return nil
		}
		if !isSuccess(http.MethodGet, resp.StatusCode) {
			return fmt.Errorf("wxclient: unexpected status %d", resp.StatusCode)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("wxclient: read response body: %w", readErr)
		}

		decoded, decodeErr := codec.DecodeObject(string(body))
		if decodeErr != nil {
			return fmt.Errorf("wxclient: decode response: %w", decodeErr)
		}

		rec = decoded
		ok = true
		return nil
	})

	return rec, ok, err
}

// PrettyPrint renders rec as "  key: value" lines, one per field, hiding
// the internal lamportClock field - the consumer-visible asymmetry the
// wire dialect's design notes call out.
func PrettyPrint(rec *codec.Record) string {
	var b strings.Builder
	for _, k := range rec.Keys() {
		if k == "lamportClock" {
			continue
		}
		v, _ := rec.Get(k)
		fmt.Fprintf(&b, "  %s: %s\n", k, v)
	}
	return b.String()
}
