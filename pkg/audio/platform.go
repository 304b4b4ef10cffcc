// Package audio defines the interfaces for voice-channel connectivity used
// by the playback orchestrator.
//
// The two abstractions are:
//
//   - [Platform] — joins a voice channel and returns a [Connection].
//   - [Connection] — an active session on that channel that plays one PCM
//     stream at a time and can be torn down idempotently.
//
// Implementations are provided by platform-specific adapter packages (e.g.
// audio/discord). The interfaces are intentionally narrow to keep the
// orchestrator decoupled from provider details and trivially mockable.
//
// This package lives under pkg/ because external code (third-party platform
// adapters) is expected to implement [Platform] and [Connection].
package audio

import (
	"context"
	"io"
)

// Connection represents an active session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// Play streams src — raw little-endian s16 PCM at 48 kHz stereo — to
	// the channel, blocking until the stream ends or fails. A nil return
	// means natural end-of-stream; any other return is a transport or
	// stream error. Cancelling ctx aborts playback.
	//
	// Play must not be called concurrently on the same Connection.
	Play(ctx context.Context, src io.Reader) error

	// Disconnect tears down the connection and releases its resources.
	// It is safe to call more than once; subsequent calls are no-ops
	// returning nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by guildID and channelID
	// and returns an active [Connection]. The supplied ctx governs the
	// connection attempt only; the Connection outlives it until
	// [Connection.Disconnect].
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}
