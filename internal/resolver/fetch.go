package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/memorywall/memorywall/pkg/json"
)

// maxBodyBytes caps how much of a remote response we are willing to read.
const maxBodyBytes = 1 << 20

// fetcher performs bounded, retried HTTP fetches for oEmbed endpoints and
// page scraping. Transient network errors get one retried attempt; HTTP
// error statuses are permanent.
type fetcher struct {
	client *http.Client
}

func newFetcher(client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &fetcher{client: client}
}

func (f *fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	op := func() ([]byte, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, "", backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", "memorywall/1.0 (+https://github.com/memorywall/memorywall)")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("request %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, "", backoff.Permanent(fmt.Errorf("fetch %s: %s", rawURL, resp.Status))
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
		}
		return body, resp.Header.Get("Content-Type"), nil
	}

	var body []byte
	var contentType string
	retry := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	err := backoff.Retry(func() error {
		var err error
		body, contentType, err = op()
		return err
	}, retry)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// oembed fetches and decodes an oEmbed JSON document.
func (f *fetcher) oembed(ctx context.Context, endpoint string) (*oEmbed, error) {
	body, _, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var oe oEmbed
	if err := json.Unmarshal(body, &oe); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	return &oe, nil
}

// document fetches a page and parses it for scraping.
func (f *fetcher) document(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	body, contentType, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("parse document: %w", err)
	}
	return doc, contentType, nil
}
