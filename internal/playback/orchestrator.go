// Package playback implements the orchestrator that drives one command
// invocation from trigger to torn-down voice connection: resolve a clip,
// check channel permissions, connect, stream the effects-pipeline output,
// and disconnect on completion or on any error.
package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/MrWong99/ostinato/internal/effects"
	"github.com/MrWong99/ostinato/internal/observe"
	"github.com/MrWong99/ostinato/internal/query"
	"github.com/MrWong99/ostinato/pkg/audio"
)

// Resolver resolves a (command, query) pair to the next playable sound.
// [query.Cache] satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, commandID, queryText string) (query.PlayableSound, bool, error)
}

// AssetOpener resolves an opaque asset path to a readable byte stream and
// its MIME type. [assets.Manager] satisfies it.
type AssetOpener interface {
	Open(assetPath string) (stream io.ReadCloser, mimeType string, err error)
}

// CapabilityChecker reports whether the bot identity holds both connect
// and speak capability on a voice channel. Implemented by the discord bot
// layer.
type CapabilityChecker interface {
	CanConnectAndSpeak(guildID, channelID string) bool
}

// VoiceStateResolver reports which voice channel a guild member currently
// occupies. Implemented by the discord bot layer.
type VoiceStateResolver interface {
	VoiceChannelOf(guildID, memberID string) (channelID string, ok bool)
}

// Request is one command invocation to orchestrate.
type Request struct {
	GuildID   string
	CommandID string
	Query     string
	MemberID  string
}

// Config wires an [Orchestrator].
type Config struct {
	Resolver     Resolver
	Assets       AssetOpener
	Pipeline     *effects.Pipeline
	Platform     audio.Platform
	Capabilities CapabilityChecker
	VoiceStates  VoiceStateResolver

	// Effects is the playback transform applied to every clip. The zero
	// value is a plain passthrough; deployments typically configure a
	// low-volume gain so clips never blast the channel.
	Effects effects.Effects

	// Metrics records playback outcomes and active connections when non-nil.
	Metrics *observe.Metrics
}

// Orchestrator executes command invocations. Independent invocations run
// fully in parallel; a slow transcode for one guild never stalls another.
//
// All methods are safe for concurrent use.
type Orchestrator struct {
	cfg Config

	mu      sync.Mutex
	active  map[string]map[*playbackHandle]struct{} // guildID → live playbacks
	stopped bool
}

// playbackHandle identifies one in-flight playback so it can be cancelled
// on guild teardown or shutdown.
type playbackHandle struct {
	cancel context.CancelFunc
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		active: make(map[string]map[*playbackHandle]struct{}),
	}
}

// HandleCommand drives one invocation through the playback state machine
// and returns its terminal outcome. The returned error carries diagnostic
// detail for the fault outcomes; it is nil for all recoverable outcomes.
//
// Cancelling ctx (or calling [Orchestrator.StopGuild] / [Orchestrator.Close])
// aborts an in-flight playback, disconnecting the voice connection and
// killing the transcoder. Partial audio output is discarded.
func (o *Orchestrator) HandleCommand(ctx context.Context, req Request) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h := &playbackHandle{cancel: cancel}
	if !o.track(req.GuildID, h) {
		return OutcomePlaybackError, fmt.Errorf("playback: orchestrator closed")
	}
	defer o.untrack(req.GuildID, h)

	// The triggering member must currently be in a voice channel.
	channelID, inVoice := o.cfg.VoiceStates.VoiceChannelOf(req.GuildID, req.MemberID)
	if !inVoice {
		return OutcomeNoVoiceChannel, nil
	}

	sound, ok, err := o.cfg.Resolver.Resolve(ctx, req.CommandID, req.Query)
	if err != nil {
		return OutcomePlaybackError, fmt.Errorf("playback: resolve %q: %w", req.CommandID, err)
	}
	if !ok {
		return OutcomeNoMatch, nil
	}

	// Both connect and speak are required before any connection attempt.
	if !o.cfg.Capabilities.CanConnectAndSpeak(req.GuildID, channelID) {
		return OutcomeNoPermission, nil
	}

	outcome, err := o.play(ctx, req.GuildID, channelID, sound)
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordPlayback(ctx, outcome.String())
	}
	return outcome, err
}

// play runs the Connected → Playing → {Completed|Failed} tail of the state
// machine with full resource cleanup.
func (o *Orchestrator) play(ctx context.Context, guildID, channelID string, sound query.PlayableSound) (Outcome, error) {
	asset, mimeType, err := o.cfg.Assets.Open(sound.AssetPath)
	if err != nil {
		return OutcomePlaybackError, fmt.Errorf("playback: open asset %q: %w", sound.AssetPath, err)
	}
	defer asset.Close()

	out, err := o.cfg.Pipeline.Process(ctx, asset, mimeType, effects.FormatPCM, o.cfg.Effects)
	if err != nil {
		return OutcomePlaybackError, fmt.Errorf("playback: process clip %q: %w", sound.ID, err)
	}
	defer out.Close()

	conn, err := o.cfg.Platform.Connect(ctx, guildID, channelID)
	if err != nil {
		return OutcomePlaybackError, fmt.Errorf("playback: connect to channel %q: %w", channelID, err)
	}
	// Disconnect is idempotent; the deferred call covers every exit path.
	defer func() {
		if dErr := conn.Disconnect(); dErr != nil {
			slog.Warn("playback: disconnect error", "guild_id", guildID, "error", dErr)
		}
	}()

	if o.cfg.Metrics != nil {
		o.cfg.Metrics.VoiceConnectionOpened(ctx)
		defer o.cfg.Metrics.VoiceConnectionClosed(ctx)
	}

	slog.Info("playback: playing clip",
		"guild_id", guildID,
		"channel_id", channelID,
		"clip_id", sound.ID,
	)

	if err := conn.Play(ctx, out); err != nil {
		return OutcomePlaybackError, fmt.Errorf("playback: stream clip %q: %w", sound.ID, err)
	}
	return OutcomePlayed, nil
}

// StopGuild cancels every in-flight playback for guildID. Used on guild
// teardown (bot kicked, guild deleted).
func (o *Orchestrator) StopGuild(guildID string) {
	o.mu.Lock()
	handles := o.active[guildID]
	delete(o.active, guildID)
	o.mu.Unlock()
	for h := range handles {
		h.cancel()
	}
}

// Close cancels all in-flight playbacks across all guilds. Subsequent
// HandleCommand calls fail. Close is idempotent.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.stopped = true
	all := o.active
	o.active = make(map[string]map[*playbackHandle]struct{})
	o.mu.Unlock()
	for _, handles := range all {
		for h := range handles {
			h.cancel()
		}
	}
}

// track registers a live playback. Returns false when the orchestrator is
// already closed.
func (o *Orchestrator) track(guildID string, h *playbackHandle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return false
	}
	handles := o.active[guildID]
	if handles == nil {
		handles = make(map[*playbackHandle]struct{})
		o.active[guildID] = handles
	}
	handles[h] = struct{}{}
	return true
}

// untrack removes a finished playback.
func (o *Orchestrator) untrack(guildID string, h *playbackHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if handles, ok := o.active[guildID]; ok {
		delete(handles, h)
		if len(handles) == 0 {
			delete(o.active, guildID)
		}
	}
}
