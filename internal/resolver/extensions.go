package resolver

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

var extensionTables = map[MediaType][]string{
	MediaImage:    {".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg", ".bmp"},
	MediaVideo:    {".mp4", ".webm", ".mov", ".mkv", ".avi", ".m4v"},
	MediaAudio:    {".mp3", ".ogg", ".wav", ".flac", ".m4a", ".aac", ".opus"},
	MediaDocument: {".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx", ".txt", ".epub"},
}

// matchExtension checks the URL path extension against the known media
// extension tables. Returns the matched media type or "" when none matches.
func matchExtension(u *url.URL) MediaType {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return ""
	}
	for mediaType, exts := range extensionTables {
		for _, e := range exts {
			if ext == e {
				return mediaType
			}
		}
	}
	return ""
}

// mediaFileMetadata synthesizes metadata for a direct media file, with
// embeddable markup native to the media kind. No network call involved.
func mediaFileMetadata(rawURL string, u *url.URL, mediaType MediaType) *Metadata {
	name := path.Base(u.Path)
	meta := &Metadata{
		URL:         rawURL,
		Title:       name,
		Description: fmt.Sprintf("Direct %s file", mediaType),
		MediaType:   mediaType,
		Secure:      u.Scheme == "https",
		ResolvedAt:  time.Now().UTC(),
	}
	switch mediaType {
	case MediaImage:
		meta.Thumbnail = rawURL
		meta.EmbedHTML = fmt.Sprintf(`<img src=%q alt=%q loading="lazy">`, rawURL, name)
	case MediaVideo:
		meta.EmbedHTML = fmt.Sprintf(`<video controls preload="metadata" src=%q></video>`, rawURL)
	case MediaAudio:
		meta.EmbedHTML = fmt.Sprintf(`<audio controls preload="metadata" src=%q></audio>`, rawURL)
	case MediaDocument:
		meta.EmbedHTML = fmt.Sprintf(`<a href=%q target="_blank" rel="noopener">%s</a>`, rawURL, name)
	}
	return meta
}
