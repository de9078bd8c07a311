package media

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

var (
	ErrInvalidURL          = errors.New("invalid video url")
	ErrUnsupportedProvider = errors.New("only YouTube and Vimeo links are supported")
)

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDPattern   = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// Source identifies a video on an external host.
type Source struct {
	Provider     types.VideoProvider `json:"provider"`
	ID           string              `json:"providerVideoId"`
	CanonicalURL string              `json:"url"`
	EmbedURL     string              `json:"embedUrl"`
}

// Parse recognises YouTube and Vimeo links in their common shapes:
// watch?v=, youtu.be/, /embed/, /shorts/, vimeo.com/<id>, player.vimeo.com/video/<id>.
func Parse(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Source{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Source{}, fmt.Errorf("%w: scheme %s", ErrInvalidURL, u.Scheme)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := splitPath(u.Path)

	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		var id string
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live" || segments[0] == "v"):
			id = segments[1]
		}
		return youtubeSource(id)
	case "youtu.be":
		if len(segments) == 0 {
			return Source{}, ErrInvalidURL
		}
		return youtubeSource(segments[0])
	case "vimeo.com":
		// The numeric id is the last numeric segment: /123, /channels/staff/123, /123/abcdef (unlisted hash).
		for i := len(segments) - 1; i >= 0; i-- {
			if vimeoIDPattern.MatchString(segments[i]) {
				return vimeoSource(segments[i])
			}
		}
		return Source{}, fmt.Errorf("%w: no vimeo id", ErrInvalidURL)
	case "player.vimeo.com":
		if len(segments) >= 2 && segments[0] == "video" {
			return vimeoSource(segments[1])
		}
		return Source{}, fmt.Errorf("%w: no vimeo id", ErrInvalidURL)
	}

	return Source{}, ErrUnsupportedProvider
}

func youtubeSource(id string) (Source, error) {
	if !youtubeIDPattern.MatchString(id) {
		return Source{}, fmt.Errorf("%w: bad youtube id %q", ErrInvalidURL, id)
	}
	return Source{
		Provider:     types.VideoProviderYouTube,
		ID:           id,
		CanonicalURL: "https://www.youtube.com/watch?v=" + id,
		EmbedURL:     "https://www.youtube.com/embed/" + id,
	}, nil
}

func vimeoSource(id string) (Source, error) {
	if !vimeoIDPattern.MatchString(id) {
		return Source{}, fmt.Errorf("%w: bad vimeo id %q", ErrInvalidURL, id)
	}
	return Source{
		Provider:     types.VideoProviderVimeo,
		ID:           id,
		CanonicalURL: "https://vimeo.com/" + id,
		EmbedURL:     "https://player.vimeo.com/video/" + id,
	}, nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
