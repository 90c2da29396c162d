package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI uses the OpenAI speech endpoint through go-openai.
type OpenAI struct {
	client *openai.Client
	model  openai.SpeechModel
}

func NewOpenAI(apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: openai.TTSModel1}, nil
}

// NewOpenAIWithBaseURL talks to an OpenAI compatible server.
func NewOpenAIWithBaseURL(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: openai.TTSModel1}, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, name, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openai.SpeechVoice(name),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Provider: providerOpenAI}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, &APIError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error(), Provider: providerOpenAI}
		}
		return nil, fmt.Errorf("tts [%s]: %w", providerOpenAI, err)
	}
	return resp, nil
}
