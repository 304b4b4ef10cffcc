// Package effects implements the streaming audio transform pipeline: it
// validates the declared input type, delegates decoding and filtering to an
// external transcoder, and yields the transformed byte stream with
// transcoder failures surfaced as terminal stream errors.
package effects

import (
	"context"
	"fmt"
	"io"
)

// Playback output parameters. The voice connection consumes raw PCM at
// Discord's native format and performs Opus encoding itself.
const (
	PlaybackSampleRate = 48000
	PlaybackChannels   = 2
)

// Format selects the pipeline's output encoding.
type Format string

const (
	// FormatPCM is raw little-endian signed 16-bit PCM at 48 kHz stereo,
	// ready for Opus encoding by the voice connection.
	FormatPCM Format = "s16le"

	// FormatOgg is an Ogg/Opus container, used for normalised asset storage.
	FormatOgg Format = "ogg"
)

// Effects configures the playback transform applied by [Pipeline.Process].
type Effects struct {
	// ClippingThreshold is the soft-clip limiter threshold (linear, 0–1).
	// Zero disables the limiter.
	ClippingThreshold float64

	// Volume is a linear gain multiplier. Zero disables the gain stage.
	Volume float64
}

// Pipeline is the streaming audio transform. It owns no processes itself;
// each call delegates to the configured [Transcoder] and returns that
// call's output stream. Streams are not restartable — reprocessing
// requires a fresh call.
//
// Pipeline is safe for concurrent use; every call operates on data it owns
// exclusively.
type Pipeline struct {
	transcoder Transcoder
}

// NewPipeline creates a Pipeline delegating to transcoder.
func NewPipeline(transcoder Transcoder) *Pipeline {
	return &Pipeline{transcoder: transcoder}
}

// Process transcodes in (declared as inputMIME) to output, applying the
// soft-clip limiter and gain stages configured in fx. The returned stream
// is produced lazily; transcoder failures arrive as a terminal read error
// and clean completion as io.EOF.
//
// An unrecognized inputMIME fails with [ErrUnrecognizedMIME] before any
// stream or process is created.
func (p *Pipeline) Process(ctx context.Context, in io.Reader, inputMIME string, output Format, fx Effects) (io.ReadCloser, error) {
	desc, ok := DescribeMIME(inputMIME)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMIME, inputMIME)
	}

	var filters []string
	if fx.ClippingThreshold > 0 {
		filters = append(filters, fmt.Sprintf("asoftclip=threshold=%g", fx.ClippingThreshold))
	}
	if fx.Volume > 0 {
		filters = append(filters, fmt.Sprintf("volume=%g", fx.Volume))
	}

	return p.transcoder.Transform(ctx, in, TransformSpec{
		InputFormat:  desc.Format,
		OutputFormat: string(output),
		Filters:      filters,
		OutputArgs:   outputArgs(output),
	})
}

// Normalize transcodes in (declared as inputMIME) to a normalised Ogg/Opus
// stream using a fixed speech-normalisation filter chain. Used when
// ingesting uploaded assets so every stored clip plays at a comparable
// level. The stream contract matches [Pipeline.Process].
func (p *Pipeline) Normalize(ctx context.Context, in io.Reader, inputMIME string) (io.ReadCloser, error) {
	desc, ok := DescribeMIME(inputMIME)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMIME, inputMIME)
	}

	return p.transcoder.Transform(ctx, in, TransformSpec{
		InputFormat:  desc.Format,
		OutputFormat: string(FormatOgg),
		Filters: []string{
			"speechnorm=e=40:c=40:t=1:i=1:l=1:r=0.0003:f=0.0003",
		},
	})
}

// outputArgs returns the extra muxer arguments for a format. Raw PCM has
// no header, so rate and channel count must be pinned explicitly.
func outputArgs(output Format) []string {
	if output == FormatPCM {
		return []string{
			"-ar", fmt.Sprint(PlaybackSampleRate),
			"-ac", fmt.Sprint(PlaybackChannels),
		}
	}
	return nil
}
