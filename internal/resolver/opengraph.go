package resolver

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// scrapePage fetches a generic web page and extracts OpenGraph and fallback
// meta fields into "article" metadata.
func (r *Resolver) scrapePage(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	doc, contentType, err := r.fetcher.document(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		URL:         rawURL,
		MediaType:   MediaArticle,
		ContentType: contentType,
		Secure:      u.Scheme == "https",
		ResolvedAt:  time.Now().UTC(),
	}

	meta.Title = firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
		rawURL,
	)
	meta.Description = firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
		degradedDescription,
	)
	meta.Thumbnail = resolveRelative(u, firstNonEmpty(
		metaContent(doc, `meta[property="og:image"]`),
		metaContent(doc, `meta[name="twitter:image"]`),
	))
	meta.Platform = firstNonEmpty(
		metaContent(doc, `meta[property="og:site_name"]`),
		normalizeHost(u.Hostname()),
	)

	return meta, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveRelative makes a possibly-relative image reference absolute.
func resolveRelative(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
