package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// CanonicalURL normalizes a raw URL for frontier deduplication: fragments
// are dropped, the scheme defaults to http, the scheme and host are
// lowercased, and an empty path becomes "/". Returns an error for empty
// or unparseable input.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}

// ExtractDomain returns the lowercase hostname of a URL, or "unknown" when
// the URL does not parse. Admission control and stats key on this label.
func ExtractDomain(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
