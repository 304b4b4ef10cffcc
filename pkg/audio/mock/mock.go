// Package mock provides in-memory mock implementations of the
// [audio.Platform] and [audio.Connection] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	conn := &mock.Connection{}
//	platform := &mock.Platform{ConnectResult: conn}
//	got, err := platform.Connect(ctx, "guild-1", "channel-42")
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/MrWong99/ostinato/pkg/audio"
)

// ─── Connection ───────────────────────────────────────────────────────────────

// Connection is a mock implementation of [audio.Connection].
// Set the exported Result fields before use; inspect the Call* fields after.
type Connection struct {
	mu sync.Mutex

	// PlayError is returned by [Connection.Play] after the source has been drained.
	PlayError error

	// DisconnectError is returned by the first [Connection.Disconnect] call.
	DisconnectError error

	// CallCountPlay records how many times Play was called.
	CallCountPlay int

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int

	// PlayedBytes accumulates everything read from the Play sources.
	PlayedBytes []byte

	disconnected bool
}

// Compile-time interface assertions.
var (
	_ audio.Connection = (*Connection)(nil)
	_ audio.Platform   = (*Platform)(nil)
)

// Play implements [audio.Connection]. It drains src into PlayedBytes and
// returns PlayError (nil means natural end-of-stream). A read error from
// src is returned as-is, matching the real connection's behaviour.
func (c *Connection) Play(ctx context.Context, src io.Reader) error {
	c.mu.Lock()
	c.CallCountPlay++
	c.mu.Unlock()

	data, err := io.ReadAll(src)

	c.mu.Lock()
	c.PlayedBytes = append(c.PlayedBytes, data...)
	playErr := c.PlayError
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return playErr
}

// Disconnect implements [audio.Connection]. The first call returns
// DisconnectError; subsequent calls are no-ops returning nil.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	if c.disconnected {
		return nil
	}
	c.disconnected = true
	return c.DisconnectError
}

// Disconnected reports whether Disconnect has been called at least once.
func (c *Connection) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is returned by [Platform.Connect] when ConnectError is nil.
	ConnectResult *Connection

	// ConnectError is returned by [Platform.Connect].
	ConnectError error

	// CallCountConnect records how many times Connect was called.
	CallCountConnect int

	// ConnectedChannels records the (guildID, channelID) pairs passed to Connect.
	ConnectedChannels [][2]string
}

// Connect implements [audio.Platform].
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountConnect++
	p.ConnectedChannels = append(p.ConnectedChannels, [2]string{guildID, channelID})
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	return p.ConnectResult, nil
}
