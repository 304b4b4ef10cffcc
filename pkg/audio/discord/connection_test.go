package discord

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/ostinato/pkg/audio"
)

// ─── compile-time interface assertions ───────────────────────────────────────

var _ audio.Platform = (*Platform)(nil)
var _ audio.Connection = (*Connection)(nil)

// newTestConnection creates a Connection suitable for unit testing without
// a real Discord voice connection. The fake vc has no websocket, so the
// speaking notification fails harmlessly, and OpusSend is drained by the
// test itself.
func newTestConnection(t *testing.T, sendBuffer int) *Connection {
	t.Helper()
	vc := &discordgo.VoiceConnection{
		OpusSend: make(chan []byte, sendBuffer),
	}
	c := &Connection{
		vc:           vc,
		done:         make(chan struct{}),
		disconnectVC: func() error { return nil },
	}
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestPlay(t *testing.T) {
	t.Parallel()

	t.Run("encodes whole frames and pads the trailing partial", func(t *testing.T) {
		t.Parallel()
		c := newTestConnection(t, 16)

		// Two full 20 ms frames plus half a frame demand three Opus packets.
		pcm := make([]byte, opusFrameBytes*2+opusFrameBytes/2)
		if err := c.Play(context.Background(), bytes.NewReader(pcm)); err != nil {
			t.Fatalf("Play: unexpected error: %v", err)
		}

		if got := len(c.vc.OpusSend); got != 3 {
			t.Fatalf("Play: expected 3 Opus packets, got %d", got)
		}
		for i := range 3 {
			if pkt := <-c.vc.OpusSend; len(pkt) == 0 {
				t.Fatalf("Play: packet %d is empty", i)
			}
		}
	})

	t.Run("empty source sends nothing", func(t *testing.T) {
		t.Parallel()
		c := newTestConnection(t, 16)
		if err := c.Play(context.Background(), bytes.NewReader(nil)); err != nil {
			t.Fatalf("Play: unexpected error: %v", err)
		}
		if got := len(c.vc.OpusSend); got != 0 {
			t.Fatalf("Play: expected no packets, got %d", got)
		}
	})

	t.Run("context cancellation aborts a blocked send", func(t *testing.T) {
		t.Parallel()
		c := newTestConnection(t, 0) // nobody drains OpusSend

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- c.Play(ctx, bytes.NewReader(make([]byte, opusFrameBytes*8)))
		}()

		cancel()
		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Play: expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Play: timed out waiting for cancellation")
		}
	})

	t.Run("disconnect aborts playback", func(t *testing.T) {
		t.Parallel()
		c := newTestConnection(t, 0)

		errCh := make(chan error, 1)
		go func() {
			errCh <- c.Play(context.Background(), bytes.NewReader(make([]byte, opusFrameBytes*8)))
		}()

		// Give Play a moment to block on the undrained send channel.
		time.Sleep(20 * time.Millisecond)
		if err := c.Disconnect(); err != nil {
			t.Fatalf("Disconnect: unexpected error: %v", err)
		}

		select {
		case err := <-errCh:
			if err == nil {
				t.Fatal("Play: expected error after Disconnect")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Play: timed out waiting for disconnect abort")
		}
	})
}

func TestDisconnectIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	c := newTestConnection(t, 1)
	c.disconnectVC = func() error {
		calls++
		return nil
	}

	for i := range 3 {
		if err := c.Disconnect(); err != nil {
			t.Fatalf("Disconnect[%d]: unexpected error: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("Disconnect: expected 1 underlying teardown, got %d", calls)
	}
}

func TestConcurrentDisconnect(t *testing.T) {
	t.Parallel()

	c := newTestConnection(t, 1)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Disconnect()
		}()
	}
	wg.Wait()
}

func TestBytesToInt16s(t *testing.T) {
	t.Parallel()

	got := bytesToInt16s([]byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80})
	want := []int16{0, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bytesToInt16s: expected %v, got %v", want, got)
		}
	}
}
