package resolver

import "time"

// MediaType classifies what the resolved URL points at.
type MediaType string

const (
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaImage    MediaType = "image"
	MediaDocument MediaType = "document"
	MediaArticle  MediaType = "article"
	MediaLink     MediaType = "link"
)

// Metadata is the normalized descriptive record produced for a URL.
// It is persisted verbatim on the submission and not mutated afterward.
type Metadata struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	MediaType   MediaType `json:"mediaType"`
	EmbedHTML   string    `json:"embedHtml,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Secure      bool      `json:"secure"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

const degradedDescription = "no description available"

// Degraded returns the minimal always-available fallback record for a URL.
// A submission must never be blocked by a metadata failure, so every path
// that cannot produce richer metadata lands here.
func Degraded(rawURL string) *Metadata {
	return &Metadata{
		URL:         rawURL,
		Title:       rawURL,
		Description: degradedDescription,
		MediaType:   MediaLink,
		ResolvedAt:  time.Now().UTC(),
	}
}
