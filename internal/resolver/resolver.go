// Package resolver turns arbitrary submitted URLs into normalized metadata
// records. Detection runs in priority order: platform handlers first,
// then media-file extensions, then a generic OpenGraph scrape. Every failure
// path degrades to a minimal record, so Resolve is total.
package resolver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/memorywall/memorywall/pkg/metrics"
)

// Resolver resolves URL metadata. Safe for concurrent use.
type Resolver struct {
	registry map[string]PlatformHandler
	fetcher  *fetcher
	log      *zap.Logger
}

// New wires the platform registry over a shared HTTP client.
// Passing a nil client installs one with an 8 second timeout.
func New(client *http.Client, log *zap.Logger) *Resolver {
	f := newFetcher(client)
	r := &Resolver{
		registry: make(map[string]PlatformHandler),
		fetcher:  f,
		log:      log.With(zap.String("module", "resolver")),
	}
	for _, h := range []PlatformHandler{
		&youtubeHandler{client: f},
		&vimeoHandler{client: f},
		&twitterHandler{client: f},
		&tiktokHandler{client: f},
		&soundcloudHandler{client: f},
		&spotifyHandler{client: f},
	} {
		r.Register(h)
	}
	return r
}

// Register adds a platform handler for each of its hostnames. New platforms
// are added here, not by branching inside Resolve.
func (r *Resolver) Register(h PlatformHandler) {
	for _, host := range h.Hosts() {
		r.registry[normalizeHost(host)] = h
	}
}

// Resolve produces metadata for a URL. It never returns an error: any parse,
// network, or extraction failure yields the degraded record instead, since a
// submission must not be blocked by a metadata failure. Resolution is bounded
// by defaultTimeout when the caller carries no tighter deadline.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) *Metadata {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		metrics.ResolverOutcomesTotal.WithLabelValues("degraded").Inc()
		return Degraded(rawURL)
	}

	// Platform handlers take priority over extension matching so that, e.g.,
	// a YouTube URL whose path ends in a media extension is still resolved
	// as a YouTube video.
	if h, ok := r.registry[normalizeHost(u.Hostname())]; ok {
		meta, err := h.Resolve(ctx, rawURL, u)
		if err == nil {
			metrics.ResolverOutcomesTotal.WithLabelValues("platform").Inc()
			return meta
		}
		r.log.Debug("platform handler miss",
			zap.String("platform", h.Platform()),
			zap.String("url", rawURL),
			zap.Error(err))
	}

	if mediaType := matchExtension(u); mediaType != "" {
		metrics.ResolverOutcomesTotal.WithLabelValues("extension").Inc()
		return mediaFileMetadata(rawURL, u, mediaType)
	}

	meta, err := r.scrapePage(ctx, rawURL, u)
	if err != nil {
		r.log.Warn("page scrape failed, degrading metadata",
			zap.String("url", rawURL),
			zap.Error(err))
		metrics.ResolverOutcomesTotal.WithLabelValues("degraded").Inc()
		return Degraded(rawURL)
	}
	metrics.ResolverOutcomesTotal.WithLabelValues("scrape").Inc()
	return meta
}

// defaultTimeout bounds a full resolution when the caller supplied no
// tighter deadline.
const defaultTimeout = 8 * time.Second
