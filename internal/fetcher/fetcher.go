// Package fetcher downloads and summarizes rule content sources so a
// source URL can be checked before the rule is saved.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Preview summarizes a fetched content source.
type Preview struct {
	Title       string
	ItemCount   int
	LatestTitle string
	LatestLink  string
}

// Fetcher downloads and parses RSS/Atom content sources.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads and parses a content source from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "AutoPostBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Check fetches a source URL and reduces it to a preview.
func (f *Fetcher) Check(ctx context.Context, url string) (*Preview, error) {
	feed, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return Summarize(feed), nil
}

// Summarize reduces a parsed feed to the fields shown to the user.
func Summarize(feed *gofeed.Feed) *Preview {
	p := &Preview{
		Title:     feed.Title,
		ItemCount: len(feed.Items),
	}
	if len(feed.Items) > 0 && feed.Items[0] != nil {
		p.LatestTitle = feed.Items[0].Title
		p.LatestLink = feed.Items[0].Link
	}
	return p
}
