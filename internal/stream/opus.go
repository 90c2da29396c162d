// Package stream encodes decoded speech into opus packets for a voice
// connection.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
)

// Encoder turns one PCM frame into an opus packet.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

func NewOpusEncoder() (Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}
	return enc, nil
}

// Send reads s16le stereo PCM from r and sends one opus packet per 20ms
// frame on out, until r ends or ctx is done. A trailing partial frame is
// padded with silence.
func Send(ctx context.Context, r io.Reader, enc Encoder, out chan<- []byte) (frames int, err error) {
	pcmBuf := make([]byte, FrameSize*Channels*2)
	intBuf := make([]int16, FrameSize*Channels)

	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		n, err := io.ReadFull(r, pcmBuf)
		last := false
		switch {
		case errors.Is(err, io.EOF):
			return frames, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(pcmBuf[n:])
			last = true
		case err != nil:
			return frames, fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		packet, err := enc.Encode(intBuf, FrameSize, len(pcmBuf))
		if err != nil {
			return frames, fmt.Errorf("encode error: %w", err)
		}

		select {
		case out <- packet:
			frames++
		case <-ctx.Done():
			return frames, ctx.Err()
		}
		if last {
			return frames, nil
		}
	}
}
