package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// CurrentFilingsURL is the EDGAR "latest filings" Atom feed.
const CurrentFilingsURL = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&CIK=&type=&company=&dateb=&owner=include&start=0&count=40&output=atom"

// Document is one fetched feed body. ETag and LastModified are the
// response validators; they take effect only once passed to Commit.
type Document struct {
	Body         []byte
	NotModified  bool
	FetchedAt    time.Time
	ETag         string
	LastModified string
}

// Fetcher downloads the feed, sending conditional request headers from the
// last committed response so an unchanged feed costs a 304.
type Fetcher struct {
	URL       string
	UserAgent string
	Client    *http.Client

	mu           sync.Mutex
	etag         string
	lastModified string
}

// NewFetcher returns a Fetcher with a client using the given timeout.
func NewFetcher(url, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		URL:       url,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET of the feed.
func (f *Fetcher) Fetch(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "application/atom+xml, application/xml;q=0.9, */*;q=0.5")

	f.mu.Lock()
	if f.etag != "" {
		req.Header.Set("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.Header.Set("If-Modified-Since", f.lastModified)
	}
	f.mu.Unlock()

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	now := time.Now()
	if resp.StatusCode == http.StatusNotModified {
		return Document{NotModified: true, FetchedAt: now}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, fmt.Errorf("fetch %s: HTTP %d", f.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read response: %w", err)
	}

	return Document{
		Body:         body,
		FetchedAt:    now,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// Commit records doc's validators for the next conditional request. Call it
// once doc has been fully processed; an uncommitted document is fetched again
// in full.
func (f *Fetcher) Commit(doc Document) {
	if doc.NotModified {
		return
	}
	f.mu.Lock()
	f.etag = doc.ETag
	f.lastModified = doc.LastModified
	f.mu.Unlock()
}
