package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/memory"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

var (
	ErrVideoNotFound = errors.New("video not found on provider")
	ErrLookupFailed  = errors.New("video provider lookup failed")
)

// Metadata describes an external video.
type Metadata struct {
	Source
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DurationSeconds int    `json:"durationSeconds"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	// Resolved is false when the provider could not be queried (no credentials).
	Resolved bool `json:"resolved"`
}

// Lookuper resolves video URLs into metadata.
type Lookuper interface {
	Lookup(ctx context.Context, rawURL string) (Metadata, error)
}

// Client queries the YouTube Data API and Vimeo oEmbed.
type Client struct {
	youtube *youtube.Service
	http    *resty.Client
	oembed  string
	cache   *memory.Cache[Metadata]
	logger  *slog.Logger
}

// NewClient builds a client. YouTube lookups need an API key or a service account file;
// without either, YouTube links are accepted but not resolved.
func NewClient(ctx context.Context, cfg config.MediaConfig, logger *slog.Logger) (*Client, error) {
	yt, err := newYouTubeService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if yt == nil {
		logger.Warn("youtube metadata lookups disabled (YOUTUBE_API_KEY / GOOGLE_CREDENTIALS_FILE not set)")
	}

	httpClient := resty.New().
		SetTimeout(cfg.LookupTimeout).
		SetRetryCount(2).
		SetHeader("Accept", "application/json")

	return &Client{
		youtube: yt,
		http:    httpClient,
		oembed:  cfg.VimeoOEmbedURL,
		cache:   memory.New[Metadata](cfg.CacheTTL),
		logger:  logger,
	}, nil
}

func newYouTubeService(ctx context.Context, cfg config.MediaConfig) (*youtube.Service, error) {
	switch {
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(data, youtube.YoutubeReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		svc, err := youtube.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
		if err != nil {
			return nil, fmt.Errorf("create youtube service: %w", err)
		}
		return svc, nil
	case cfg.YouTubeAPIKey != "":
		svc, err := youtube.NewService(ctx, option.WithAPIKey(cfg.YouTubeAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create youtube service: %w", err)
		}
		return svc, nil
	}
	return nil, nil
}

// Lookup parses rawURL and fetches title, description and duration from the provider.
func (c *Client) Lookup(ctx context.Context, rawURL string) (Metadata, error) {
	src, err := Parse(rawURL)
	if err != nil {
		return Metadata{}, err
	}

	return c.cache.GetOrSet(memory.Key(src.Provider, src.ID), func() (Metadata, error) {
		switch src.Provider {
		case types.VideoProviderYouTube:
			return c.lookupYouTube(ctx, src)
		case types.VideoProviderVimeo:
			return c.lookupVimeo(ctx, src)
		}
		return Metadata{Source: src}, nil
	})
}

// Close stops the metadata cache janitor.
func (c *Client) Close() {
	c.cache.Stop()
}

func (c *Client) lookupYouTube(ctx context.Context, src Source) (Metadata, error) {
	if c.youtube == nil {
		return Metadata{Source: src}, nil
	}

	resp, err := c.youtube.Videos.List([]string{"snippet", "contentDetails"}).Id(src.ID).Context(ctx).Do()
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: youtube: %v", ErrLookupFailed, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return Metadata{}, ErrVideoNotFound
	}

	item := resp.Items[0]
	meta := Metadata{
		Source:      src,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Resolved:    true,
	}
	if t := item.Snippet.Thumbnails; t != nil && t.High != nil {
		meta.ThumbnailURL = t.High.Url
	}
	if item.ContentDetails != nil {
		if secs, err := parseISODuration(item.ContentDetails.Duration); err == nil {
			meta.DurationSeconds = secs
		} else {
			c.logger.Warn("unparseable youtube duration", slog.String("videoId", src.ID), slog.String("duration", item.ContentDetails.Duration))
		}
	}
	return meta, nil
}

type oembedResponse struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (c *Client) lookupVimeo(ctx context.Context, src Source) (Metadata, error) {
	var out oembedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("url", src.CanonicalURL).
		SetResult(&out).
		Get(c.oembed)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: vimeo: %v", ErrLookupFailed, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return Metadata{}, ErrVideoNotFound
	default:
		return Metadata{}, fmt.Errorf("%w: vimeo returned %d", ErrLookupFailed, resp.StatusCode())
	}

	return Metadata{
		Source:          src,
		Title:           out.Title,
		Description:     out.Description,
		DurationSeconds: out.Duration,
		ThumbnailURL:    out.ThumbnailURL,
		Resolved:        true,
	}, nil
}
