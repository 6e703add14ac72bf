package resolver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// PlatformHandler resolves URLs for one external site. Handlers extract a
// platform-specific identifier from the URL structure and produce embeddable
// metadata; a failed oEmbed call degrades to the handler's static template
// rather than failing the resolution.
type PlatformHandler interface {
	Platform() string
	Hosts() []string
	Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error)
}

// errNoPlatformID signals that the handler matched the host but could not
// find a usable identifier in the URL; the resolver falls through to the
// next detection stage.
var errNoPlatformID = fmt.Errorf("no platform identifier in URL")

// oEmbed is the subset of the oEmbed response we consume.
type oEmbed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`
}

// --- YouTube ---

type youtubeHandler struct {
	client *fetcher
}

var youtubePathID = regexp.MustCompile(`^/(?:shorts|embed|live|v)/([A-Za-z0-9_-]{6,})`)

func (h *youtubeHandler) Platform() string { return "youtube" }

func (h *youtubeHandler) Hosts() []string {
	return []string{"youtube.com", "m.youtube.com", "youtu.be", "music.youtube.com"}
}

func (h *youtubeHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	id := h.videoID(u)
	if id == "" {
		return nil, errNoPlatformID
	}
	meta := &Metadata{
		URL:        rawURL,
		Title:      "YouTube video",
		Platform:   h.Platform(),
		MediaType:  MediaVideo,
		Thumbnail:  fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id),
		EmbedHTML:  fmt.Sprintf(`<iframe src="https://www.youtube.com/embed/%s" frameborder="0" allowfullscreen></iframe>`, id),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

func (h *youtubeHandler) videoID(u *url.URL) string {
	host := normalizeHost(u.Hostname())
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if m := youtubePathID.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// --- Vimeo ---

type vimeoHandler struct {
	client *fetcher
}

var vimeoPathID = regexp.MustCompile(`^/(?:video/)?(\d+)`)

func (h *vimeoHandler) Platform() string { return "vimeo" }

func (h *vimeoHandler) Hosts() []string {
	return []string{"vimeo.com", "player.vimeo.com"}
}

func (h *vimeoHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	m := vimeoPathID.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, errNoPlatformID
	}
	id := m[1]
	meta := &Metadata{
		URL:        rawURL,
		Title:      "Vimeo video",
		Platform:   h.Platform(),
		MediaType:  MediaVideo,
		EmbedHTML:  fmt.Sprintf(`<iframe src="https://player.vimeo.com/video/%s" frameborder="0" allowfullscreen></iframe>`, id),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://vimeo.com/api/oembed.json?url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

// --- Twitter / X ---

type twitterHandler struct {
	client *fetcher
}

var tweetPathID = regexp.MustCompile(`/status(?:es)?/(\d+)`)

func (h *twitterHandler) Platform() string { return "twitter" }

func (h *twitterHandler) Hosts() []string {
	return []string{"twitter.com", "x.com", "mobile.twitter.com"}
}

func (h *twitterHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	m := tweetPathID.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, errNoPlatformID
	}
	meta := &Metadata{
		URL:        rawURL,
		Title:      "Post on X",
		Platform:   h.Platform(),
		MediaType:  MediaArticle,
		EmbedHTML:  fmt.Sprintf(`<blockquote class="twitter-tweet"><a href=%q></a></blockquote>`, rawURL),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://publish.twitter.com/oembed?url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

// --- TikTok ---

type tiktokHandler struct {
	client *fetcher
}

var tiktokPathID = regexp.MustCompile(`/video/(\d+)`)

func (h *tiktokHandler) Platform() string { return "tiktok" }

func (h *tiktokHandler) Hosts() []string {
	return []string{"tiktok.com", "vm.tiktok.com"}
}

func (h *tiktokHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	if tiktokPathID.FindStringSubmatch(u.Path) == nil && normalizeHost(u.Hostname()) != "vm.tiktok.com" {
		return nil, errNoPlatformID
	}
	meta := &Metadata{
		URL:        rawURL,
		Title:      "TikTok video",
		Platform:   h.Platform(),
		MediaType:  MediaVideo,
		EmbedHTML:  fmt.Sprintf(`<blockquote class="tiktok-embed" cite=%q><a href=%q></a></blockquote>`, rawURL, rawURL),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://www.tiktok.com/oembed?url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

// --- SoundCloud ---

type soundcloudHandler struct {
	client *fetcher
}

func (h *soundcloudHandler) Platform() string { return "soundcloud" }

func (h *soundcloudHandler) Hosts() []string {
	return []string{"soundcloud.com", "on.soundcloud.com"}
}

func (h *soundcloudHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	if strings.Trim(u.Path, "/") == "" {
		return nil, errNoPlatformID
	}
	meta := &Metadata{
		URL:       rawURL,
		Title:     "SoundCloud track",
		Platform:  h.Platform(),
		MediaType: MediaAudio,
		EmbedHTML: fmt.Sprintf(
			`<iframe src="https://w.soundcloud.com/player/?url=%s" frameborder="0"></iframe>`,
			url.QueryEscape(rawURL)),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://soundcloud.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

// --- Spotify ---

type spotifyHandler struct {
	client *fetcher
}

var spotifyPath = regexp.MustCompile(`^/(track|album|playlist|episode|show)/([A-Za-z0-9]+)`)

func (h *spotifyHandler) Platform() string { return "spotify" }

func (h *spotifyHandler) Hosts() []string {
	return []string{"open.spotify.com"}
}

func (h *spotifyHandler) Resolve(ctx context.Context, rawURL string, u *url.URL) (*Metadata, error) {
	m := spotifyPath.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, errNoPlatformID
	}
	kind, id := m[1], m[2]
	meta := &Metadata{
		URL:        rawURL,
		Title:      "Spotify " + kind,
		Platform:   h.Platform(),
		MediaType:  MediaAudio,
		EmbedHTML:  fmt.Sprintf(`<iframe src="https://open.spotify.com/embed/%s/%s" frameborder="0"></iframe>`, kind, id),
		Secure:     true,
		ResolvedAt: time.Now().UTC(),
	}
	endpoint := "https://open.spotify.com/oembed?url=" + url.QueryEscape(rawURL)
	if oe, err := h.client.oembed(ctx, endpoint); err == nil {
		applyOEmbed(meta, oe)
	}
	return meta, nil
}

// applyOEmbed overlays richer oEmbed fields onto the handler's static record.
func applyOEmbed(meta *Metadata, oe *oEmbed) {
	if oe.Title != "" {
		meta.Title = oe.Title
	}
	if oe.AuthorName != "" {
		meta.Description = "by " + oe.AuthorName
	}
	if oe.ThumbnailURL != "" {
		meta.Thumbnail = oe.ThumbnailURL
	}
	if oe.HTML != "" {
		meta.EmbedHTML = oe.HTML
	}
}

// normalizeHost lowercases a hostname and strips a leading "www.".
func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
