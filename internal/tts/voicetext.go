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

const (
	voiceTextURL      = "https://api.voicetext.jp/v1/tts"
	providerVoiceText = "voicetext"
)

// VoiceText calls the VoiceText Web API: a form POST with basic auth that
// answers with WAV audio.
type VoiceText struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewVoiceText(apiKey string) (*VoiceText, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &VoiceText{
		apiKey:  apiKey,
		baseURL: voiceTextURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithBaseURL points the provider at another endpoint.
func (v *VoiceText) WithBaseURL(u string) *VoiceText {
	v.baseURL = u
	return v
}

func (v *VoiceText) Synthesize(ctx context.Context, name, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("speaker", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("tts [%s]: build request: %w", providerVoiceText, err)
	}
	req.SetBasicAuth(v.apiKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts [%s]: request: %w", providerVoiceText, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(providerVoiceText, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}
