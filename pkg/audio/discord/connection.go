package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/ostinato/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. It encodes the orchestrator's raw PCM
// stream to Opus for transmission; discordgo paces the encoded frames at
// the 20 ms frame interval.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc *discordgo.VoiceConnection

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC is called during Disconnect to tear down the voice
	// connection. Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel.
func newConnection(vc *discordgo.VoiceConnection) *Connection {
	return &Connection{
		vc:           vc,
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}
}

// Play implements [audio.Connection]. It reads 20 ms PCM chunks from src,
// encodes each to Opus, and sends them to Discord until src is exhausted.
// A trailing partial chunk is padded with silence so the final frame is
// not dropped.
func (c *Connection) Play(ctx context.Context, src io.Reader) error {
	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	c.setSpeaking(true)
	defer c.setSpeaking(false)

	buf := make([]byte, opusFrameBytes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return errors.New("discord: connection closed during playback")
		default:
		}

		n, readErr := io.ReadFull(src, buf)
		if readErr == io.EOF {
			return nil
		}
		if readErr == io.ErrUnexpectedEOF {
			// Pad the final short chunk with silence to a full frame.
			clear(buf[n:])
			if err := c.sendFrame(ctx, enc, buf); err != nil {
				return err
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("discord: read playback stream: %w", readErr)
		}

		if err := c.sendFrame(ctx, enc, buf); err != nil {
			return err
		}
	}
}

// sendFrame encodes one full PCM frame and queues it for transmission.
func (c *Connection) sendFrame(ctx context.Context, enc *opusEncoder, pcm []byte) error {
	opus, err := enc.encode(pcm)
	if err != nil {
		return err
	}
	select {
	case c.vc.OpusSend <- opus:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.New("discord: connection closed during playback")
	}
}

// Disconnect cleanly tears down the voice connection. It is safe to call
// more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}
