package types

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is the status and body of one fetched source endpoint.
// Parsers read Body and ContentType; everything else is for logs.
type Response struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string

	// FinalURL is where the body came from after redirects.
	FinalURL string

	Request   *Request
	Duration  time.Duration
	FetchedAt time.Time

	doc *goquery.Document
}

// NewHTTPResponse wraps a completed net/http exchange whose body has
// already been read and decoded.
func NewHTTPResponse(req *Request, httpResp *http.Response, body []byte, d time.Duration) *Response {
	final := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		final = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:  httpResp.StatusCode,
		Headers:     httpResp.Header,
		Body:        body,
		ContentType: httpResp.Header.Get("Content-Type"),
		FinalURL:    final,
		Request:     req,
		Duration:    d,
		FetchedAt:   time.Now(),
	}
}

// NewRenderedResponse wraps the HTML of a page rendered in a browser.
// The document status is not observable there, so a rendered page is a 200.
func NewRenderedResponse(req *Request, html, finalURL string, d time.Duration) *Response {
	return &Response{
		StatusCode:  http.StatusOK,
		Headers:     make(http.Header),
		Body:        []byte(html),
		ContentType: "text/html; charset=utf-8",
		FinalURL:    finalURL,
		Request:     req,
		Duration:    d,
		FetchedAt:   time.Now(),
	}
}

// Document parses Body as HTML on first use and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc == nil {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			return nil, err
		}
		r.doc = doc
	}
	return r.doc, nil
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the declared content type is JSON.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "json")
}
