package wxclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/weathermesh/wxfabric/internal/lamport"
)

// doer is the subset of *http.Client this package depends on, so tests
// can substitute a fake transport.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// send issues method against url carrying the local clock's current
// tick as X-Lamport-Clock, and merges any clock the response carries
// back. It fails only when the request cannot be built or sent; it does
// not inspect the response status, which callers check with isSuccess
// ({200, 201} for a PUT, {200, 204} for a GET) and turn into an error
// the retry wrapper retries.
func send(ctx context.Context, client doer, clock *lamport.Clock, method, url string, body string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("wxclient: build request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	req.Header.Set("X-Lamport-Clock", strconv.FormatInt(clock.Tick(), 10))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wxclient: %s %s: %w", method, url, err)
	}

	if raw := resp.Header.Get("X-Lamport-Clock"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			clock.Merge(v)
		}
	}

	return resp, nil
}

func isSuccess(method string, status int) bool {
	switch method {
	case http.MethodPut:
		return status == http.StatusOK || status == http.StatusCreated
	default:
		return status == http.StatusOK || status == http.StatusNoContent
	}
}
