// Package tts turns text into audio for the speech queues: a catalog of
// selectable voices, one provider per voice category, and a router that
// dispatches, retries and decodes to PCM.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrUnknownVoice = errors.New("tts: unknown voice")
	ErrNoAPIKey     = errors.New("tts: API key required")
	ErrEmptyText    = errors.New("tts: empty text")
)

// Provider synthesizes text with one of its voices. name is the part of the
// voice id after the category prefix.
type Provider interface {
	Synthesize(ctx context.Context, name, text string) (io.ReadCloser, error)
}

// APIError is a non-2xx answer from a speech API.
type APIError struct {
	Status   int
	Message  string
	Provider string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts [%s]: API error %d: %s", e.Provider, e.Status, e.Message)
}

// StatusCode lets the retry loop classify the failure.
func (e *APIError) StatusCode() int {
	return e.Status
}

// IsRetryable reports whether a later attempt may succeed.
func (e *APIError) IsRetryable() bool {
	return e.Status == 429 || (e.Status >= 500 && e.Status < 600)
}

func readAPIError(provider string, status int, body io.Reader) *APIError {
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return &APIError{Status: status, Message: string(msg), Provider: provider}
}
