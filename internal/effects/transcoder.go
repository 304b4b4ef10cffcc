package effects

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// TransformSpec tells a [Transcoder] how to decode, filter, and re-encode
// one stream.
type TransformSpec struct {
	// InputFormat is the container/demuxer name of the input stream.
	InputFormat string

	// OutputFormat is the container/muxer name of the output stream.
	OutputFormat string

	// Filters is the audio filter chain to apply, in order.
	Filters []string

	// OutputArgs are extra muxer arguments (e.g. sample rate and channel
	// count for raw PCM output).
	OutputArgs []string
}

// Transcoder decodes, filters, and re-encodes an audio byte stream. The
// production implementation shells out to ffmpeg; tests substitute a fake
// to assert the streaming and error contract without real media tooling.
type Transcoder interface {
	// Transform starts transcoding in and returns the lazily-produced
	// output stream. Transcoder failures are delivered as a terminal read
	// error on the returned stream, never swallowed; on clean completion
	// the stream returns io.EOF. Cancelling ctx kills the transcode and
	// terminates the stream.
	Transform(ctx context.Context, in io.Reader, spec TransformSpec) (io.ReadCloser, error)
}

// FFmpeg is a [Transcoder] that spawns one ffmpeg process per call,
// feeding the input on stdin and reading the result from stdout.
type FFmpeg struct {
	// Path is the ffmpeg executable. Defaults to "ffmpeg" (resolved via PATH).
	Path string
}

// Compile-time interface check.
var _ Transcoder = (*FFmpeg)(nil)

// Transform implements [Transcoder].
func (f *FFmpeg) Transform(ctx context.Context, in io.Reader, spec TransformSpec) (io.ReadCloser, error) {
	path := f.Path
	if path == "" {
		path = "ffmpeg"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", spec.InputFormat,
		"-i", "pipe:0",
		// Only the first audio stream of the input is used.
		"-map", "0:a:0",
	}
	if len(spec.Filters) > 0 {
		args = append(args, "-af", strings.Join(spec.Filters, ","))
	}
	args = append(args, spec.OutputArgs...)
	args = append(args, "-f", spec.OutputFormat, "pipe:1")

	cmd := exec.CommandContext(ctx, path, args...)

	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd.Stdin = in
	cmd.Stdout = pw
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("effects: start %s: %w", path, err)
	}

	go func() {
		err := cmd.Wait()
		diag := strings.TrimSpace(stderr.String())
		switch {
		case err != nil:
			pw.CloseWithError(fmt.Errorf("effects: transcode failed: %w (stderr: %s)", err, diag))
		case strings.Contains(diag, "Error"):
			// ffmpeg sometimes exits 0 after logging a stream error.
			pw.CloseWithError(fmt.Errorf("effects: transcode reported error: %s", diag))
		default:
			pw.Close()
		}
	}()

	return pr, nil
}
