package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request is one fetch of a source endpoint. The aggregator builds it
// from a source spec; fetchers only read it.
type Request struct {
	URL      *url.URL
	Headers  http.Header
	SourceID string

	// FetcherType is "http" or "browser".
	FetcherType string

	// Timeout bounds the fetch; zero leaves it to the fetcher.
	Timeout time.Duration

	// WaitSelector is a CSS selector the browser fetcher waits on before
	// capturing the page. Ignored over plain HTTP.
	WaitSelector string
}

// NewRequest builds a request for an absolute http(s) URL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	switch {
	case err != nil:
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	case u.Host == "":
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return &Request{URL: u, Headers: make(http.Header), FetcherType: "http"}, nil
}

// URLString returns the request URL, or "" if unset.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Host is the hostname requests are paced on.
func (r *Request) Host() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
