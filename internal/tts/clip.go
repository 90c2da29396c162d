package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Clip plays prerecorded sound clips: the text names the clip, fetched from
// <baseURL>/<category>/<name>.mp3.
type Clip struct {
	category string
	baseURL  string
	client   *http.Client
}

func NewClip(category, baseURL string) *Clip {
	return &Clip{
		category: category,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Clip) URL(clip string) string {
	return fmt.Sprintf("%s/%s/%s.mp3", c.baseURL, url.PathEscape(c.category), url.PathEscape(clip))
}

func (c *Clip) Synthesize(ctx context.Context, _ string, text string) (io.ReadCloser, error) {
	clip := strings.TrimSpace(text)
	if clip == "" {
		return nil, ErrEmptyText
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(clip), nil)
	if err != nil {
		return nil, fmt.Errorf("tts [%s]: build request: %w", c.category, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts [%s]: request: %w", c.category, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(c.category, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}
