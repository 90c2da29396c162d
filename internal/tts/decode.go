package tts

import (
	"context"
	"fmt"
	"io"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	SampleRate = 48000
	Channels   = 2
)

// Decoder turns encoded audio into raw s16le PCM at SampleRate/Channels.
type Decoder interface {
	Decode(ctx context.Context, in io.Reader) (io.ReadCloser, error)
}

// FFmpeg decodes through an ffmpeg process fed on stdin.
type FFmpeg struct{}

func (FFmpeg) Decode(ctx context.Context, in io.Reader) (io.ReadCloser, error) {
	pr, pw := io.Pipe()

	stream := ffmpeg.Input("pipe:0").
		Output("pipe:1", ffmpeg.KwArgs{
			"f":        "s16le",
			"ar":       SampleRate,
			"ac":       Channels,
			"loglevel": "error",
		}).
		WithInput(in).
		WithOutput(pw)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		err := stream.Run()
		if err != nil {
			err = fmt.Errorf("ffmpeg: %w", err)
		}
		pw.CloseWithError(err)
	}()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				pr.CloseWithError(ctx.Err())
			case <-finished:
			}
		}()
	}

	return pr, nil
}

// Passthrough hands audio through untouched, for sources that already
// produce PCM.
type Passthrough struct{}

func (Passthrough) Decode(_ context.Context, in io.Reader) (io.ReadCloser, error) {
	if rc, ok := in.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(in), nil
}
