package effects_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrWong99/ostinato/internal/effects"
)

// fakeTranscoder records the spec it was invoked with and serves a canned
// stream or error.
type fakeTranscoder struct {
	spec   effects.TransformSpec
	output []byte
	// failAfter, when non-negative, delivers streamErr after that many
	// output bytes — mimicking a transcoder dying mid-stream.
	failAfter int
	streamErr error
	startErr  error
}

func (f *fakeTranscoder) Transform(_ context.Context, _ io.Reader, spec effects.TransformSpec) (io.ReadCloser, error) {
	f.spec = spec
	if f.startErr != nil {
		return nil, f.startErr
	}
	pr, pw := io.Pipe()
	go func() {
		out := f.output
		if f.streamErr != nil && f.failAfter >= 0 && f.failAfter < len(out) {
			out = out[:f.failAfter]
		}
		pw.Write(out)
		if f.streamErr != nil {
			pw.CloseWithError(f.streamErr)
			return
		}
		pw.Close()
	}()
	return pr, nil
}

func TestProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("streams transcoder output to completion", func(t *testing.T) {
		t.Parallel()
		want := bytes.Repeat([]byte{0x01, 0x02}, 4096)
		tc := &fakeTranscoder{output: want, failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader("input"), "audio/mpeg", effects.FormatPCM, effects.Effects{})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		defer out.Close()

		got, err := io.ReadAll(out)
		if err != nil {
			t.Fatalf("ReadAll: unexpected error: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Process: output mismatch: got %d bytes, want %d", len(got), len(want))
		}
	})

	t.Run("maps MIME type to demuxer format", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader(""), "video/webm", effects.FormatPCM, effects.Effects{})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		out.Close()

		if tc.spec.InputFormat != "dash" {
			t.Fatalf("Process: expected webm to demux as dash, got %q", tc.spec.InputFormat)
		}
		if tc.spec.OutputFormat != "s16le" {
			t.Fatalf("Process: expected s16le output, got %q", tc.spec.OutputFormat)
		}
	})

	t.Run("pins sample rate and channels for raw PCM", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader(""), "audio/ogg", effects.FormatPCM, effects.Effects{})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		out.Close()

		got := strings.Join(tc.spec.OutputArgs, " ")
		if got != "-ar 48000 -ac 2" {
			t.Fatalf("Process: expected PCM rate/channel args, got %q", got)
		}
	})

	t.Run("builds filter chain from effects", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader(""), "audio/mpeg", effects.FormatPCM,
			effects.Effects{ClippingThreshold: 0.8, Volume: 0.15})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		out.Close()

		want := []string{"asoftclip=threshold=0.8", "volume=0.15"}
		if len(tc.spec.Filters) != len(want) {
			t.Fatalf("Process: expected filters %v, got %v", want, tc.spec.Filters)
		}
		for i := range want {
			if tc.spec.Filters[i] != want[i] {
				t.Fatalf("Process: expected filters %v, got %v", want, tc.spec.Filters)
			}
		}
	})

	t.Run("zero effects mean no filters", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader(""), "audio/mpeg", effects.FormatPCM, effects.Effects{})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		out.Close()

		if len(tc.spec.Filters) != 0 {
			t.Fatalf("Process: expected no filters, got %v", tc.spec.Filters)
		}
	})

	t.Run("unrecognized MIME fails before any stream exists", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		_, err := p.Process(ctx, strings.NewReader(""), "application/pdf", effects.FormatPCM, effects.Effects{})
		if !errors.Is(err, effects.ErrUnrecognizedMIME) {
			t.Fatalf("Process: expected ErrUnrecognizedMIME, got %v", err)
		}
		if tc.spec.InputFormat != "" {
			t.Fatal("Process: transcoder must not be invoked for unsupported MIME")
		}
	})

	t.Run("mid-stream transcoder failure surfaces as terminal read error", func(t *testing.T) {
		t.Parallel()
		transcodeErr := errors.New("decoder blew up")
		tc := &fakeTranscoder{
			output:    bytes.Repeat([]byte{0xAB}, 1024),
			failAfter: 512,
			streamErr: transcodeErr,
		}
		p := effects.NewPipeline(tc)

		out, err := p.Process(ctx, strings.NewReader("input"), "audio/mpeg", effects.FormatPCM, effects.Effects{})
		if err != nil {
			t.Fatalf("Process: unexpected error: %v", err)
		}
		defer out.Close()

		got, err := io.ReadAll(out)
		if !errors.Is(err, transcodeErr) {
			t.Fatalf("ReadAll: expected terminal transcoder error, got %v", err)
		}
		if len(got) != 512 {
			t.Fatalf("ReadAll: expected the partial output before failure, got %d bytes", len(got))
		}
	})

	t.Run("transcoder start failure is returned directly", func(t *testing.T) {
		t.Parallel()
		startErr := errors.New("executable not found")
		p := effects.NewPipeline(&fakeTranscoder{startErr: startErr})

		_, err := p.Process(ctx, strings.NewReader(""), "audio/mpeg", effects.FormatPCM, effects.Effects{})
		if !errors.Is(err, startErr) {
			t.Fatalf("Process: expected start error, got %v", err)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("applies the speech normalisation chain to ogg", func(t *testing.T) {
		t.Parallel()
		tc := &fakeTranscoder{failAfter: -1}
		p := effects.NewPipeline(tc)

		out, err := p.Normalize(ctx, strings.NewReader("upload"), "video/mp4")
		if err != nil {
			t.Fatalf("Normalize: unexpected error: %v", err)
		}
		out.Close()

		if tc.spec.OutputFormat != "ogg" {
			t.Fatalf("Normalize: expected ogg output, got %q", tc.spec.OutputFormat)
		}
		if len(tc.spec.Filters) != 1 || !strings.HasPrefix(tc.spec.Filters[0], "speechnorm=") {
			t.Fatalf("Normalize: expected speechnorm filter, got %v", tc.spec.Filters)
		}
	})

	t.Run("unrecognized MIME fails fast", func(t *testing.T) {
		t.Parallel()
		p := effects.NewPipeline(&fakeTranscoder{failAfter: -1})
		_, err := p.Normalize(ctx, strings.NewReader(""), "text/plain")
		if !errors.Is(err, effects.ErrUnrecognizedMIME) {
			t.Fatalf("Normalize: expected ErrUnrecognizedMIME, got %v", err)
		}
	})
}
