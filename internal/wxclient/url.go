// Package wxclient implements the producer and consumer clients: shared
// URL handling and a bounded-retry PUT/GET against the aggregator's
// weather.json endpoint.
package wxclient

import (
	"net/url"
	"strings"
)

// NormalizeBaseURL accepts either a bare host ("localhost:4567") or a
// full URL ("http://localhost:4567/") and returns a URL with a scheme
// and no trailing slash, collapsing any accidental double slashes in
// the host/path portion.
func NormalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	scheme, rest, _ := strings.Cut(s, "://")
	for strings.Contains(rest, "//") {
		rest = strings.ReplaceAll(rest, "//", "/")
	}
	rest = strings.TrimSuffix(rest, "/")

	return scheme + "://" + rest
}

// WeatherURL builds the "/weather.json" URL for base, optionally adding
// a URL-encoded station query parameter.
func WeatherURL(base, station string) string {
	u := NormalizeBaseURL(base) + "/weather.json"
	if station != "" {
		u += "?station=" + url.QueryEscape(station)
	}
	return u
}
