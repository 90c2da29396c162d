package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/pkg/retrylimit"
)

// Router implements voice.Synthesizer: it picks the provider from the voice
// id prefix, retries transient API failures and decodes the result to PCM.
type Router struct {
	providers map[string]Provider
	decoder   Decoder
	limiter   *retrylimit.AdaptiveLimiter
	retry     retrylimit.RetryConfig
	log       zerolog.Logger
}

func NewRouter(decoder Decoder, log zerolog.Logger) *Router {
	retry := retrylimit.DefaultRetryConfig()
	retry.Logger = &log
	return &Router{
		providers: make(map[string]Provider),
		decoder:   decoder,
		limiter:   retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:     retry,
		log:       log,
	}
}

// Register binds a provider to a voice category.
func (r *Router) Register(category string, p Provider) {
	r.providers[category] = p
}

// Categories lists the registered categories.
func (r *Router) Categories() []string {
	out := make([]string, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	return out
}

// WithRetryConfig replaces the retry policy.
func (r *Router) WithRetryConfig(cfg retrylimit.RetryConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = &r.log
	}
	r.retry = cfg
	return r
}

func (r *Router) Synthesize(ctx context.Context, voiceID, text string) (io.ReadCloser, error) {
	category, name, ok := strings.Cut(voiceID, ":")
	p, found := r.providers[category]
	if !ok || !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voiceID)
	}

	var encoded io.ReadCloser
	err := retrylimit.WithRetryConfig(ctx, func() error {
		rc, err := p.Synthesize(ctx, name, text)
		if err != nil {
			if !retryable(err) {
				return retrylimit.Fatal(err)
			}
			return err
		}
		encoded = rc
		return nil
	}, r.limiter, r.retry)
	if err != nil {
		return nil, err
	}

	pcm, err := r.decoder.Decode(ctx, encoded)
	if err != nil {
		encoded.Close()
		return nil, err
	}
	return &decoded{ReadCloser: pcm, source: encoded}, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrEmptyText) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// decoded closes the decoder output and the provider body together.
type decoded struct {
	io.ReadCloser
	source io.Closer
}

func (d *decoded) Close() error {
	return errors.Join(d.ReadCloser.Close(), d.source.Close())
}
