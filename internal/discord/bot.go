// Package discord provides the Discord bot layer for Ostinato. It owns the
// discordgo.Session lifecycle, parses prefix commands from guild chat, and
// hands invocations to the playback orchestrator.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/ostinato/internal/catalog"
	"github.com/MrWong99/ostinato/internal/playback"
	"github.com/MrWong99/ostinato/pkg/audio"
	discordaudio "github.com/MrWong99/ostinato/pkg/audio/discord"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token (e.g., "MTIz...").
	Token string

	// CommandPrefix marks a chat message as a soundboard command.
	CommandPrefix string
}

// Invalidator drops cached query results when the catalog changes under
// them. [query.Cache] satisfies it.
type Invalidator interface {
	InvalidateCommand(commandID string)
}

// Bot owns the Discord gateway connection. Incoming guild messages that
// start with the command prefix are parsed and dispatched to the
// orchestrator; everything else is ignored.
type Bot struct {
	session      *discordgo.Session
	platform     *discordaudio.Platform
	store        catalog.Store
	orchestrator *playback.Orchestrator
	invalidator  Invalidator
	prefix       string

	closeOnce sync.Once
}

// New creates a Bot, connects to Discord, and registers the gateway
// handlers. The orchestrator is wired in afterwards via [Bot.SetOrchestrator]
// because it needs the bot's voice-state and permission views to exist first.
func New(_ context.Context, cfg Config, store catalog.Store, invalidator Invalidator) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	// MessageContent is a privileged intent; prefix commands cannot be read
	// without it.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}

	b := &Bot{
		session:     session,
		platform:    discordaudio.New(session),
		store:       store,
		invalidator: invalidator,
		prefix:      cfg.CommandPrefix,
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(m)
	})
	session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildDelete) {
		b.handleGuildDelete(g)
	})

	return b, nil
}

// SetOrchestrator wires the playback orchestrator. Must be called before
// [Bot.Run]; messages arriving earlier are dropped.
func (b *Bot) SetOrchestrator(o *playback.Orchestrator) {
	b.orchestrator = o
}

// Platform returns the audio.Platform for voice channel connections.
func (b *Bot) Platform() audio.Platform {
	return b.platform
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Run blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("discord bot running", "user", b.session.State.User.Username)
	<-ctx.Done()
	return ctx.Err()
}

// Close disconnects from Discord. Close is idempotent.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}

// handleMessage parses a guild message and, when it names a registered
// soundboard command, runs the invocation to completion. Exactly one
// response (reaction or reply) is sent per invocation.
func (b *Bot) handleMessage(m *discordgo.MessageCreate) {
	if b.orchestrator == nil {
		return
	}
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	name, queryText, ok := ParseInvocation(b.prefix, m.Content)
	if !ok {
		return
	}

	ctx := context.Background()
	cmd, err := b.lookupCommand(ctx, m.GuildID, name)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			slog.Error("discord: command lookup failed",
				"guild_id", m.GuildID, "command", name, "error", err)
		}
		return
	}

	outcome, err := b.orchestrator.HandleCommand(ctx, playback.Request{
		GuildID:   m.GuildID,
		CommandID: cmd.ID,
		Query:     queryText,
		MemberID:  m.Author.ID,
	})
	if err != nil {
		slog.Error("discord: command failed",
			"guild_id", m.GuildID,
			"command", cmd.Name,
			"outcome", outcome.String(),
			"error", err,
		)
	}
	b.respond(m, outcome)
}

// handleGuildDelete aborts every in-flight playback for a guild the bot
// left or was removed from, and drops its cached query results.
func (b *Bot) handleGuildDelete(g *discordgo.GuildDelete) {
	if b.orchestrator != nil {
		b.orchestrator.StopGuild(g.ID)
	}
	if b.invalidator == nil {
		return
	}
	cmds, err := b.store.FetchCommandsForGuild(context.Background(), g.ID)
	if err != nil {
		slog.Warn("discord: guild teardown lookup failed", "guild_id", g.ID, "error", err)
		return
	}
	for _, cmd := range cmds {
		b.invalidator.InvalidateCommand(cmd.ID)
	}
}

// lookupCommand finds the guild's command with the given trigger name.
// Trigger matching is case-insensitive.
func (b *Bot) lookupCommand(ctx context.Context, guildID, name string) (catalog.Command, error) {
	cmds, err := b.store.FetchCommandsForGuild(ctx, guildID)
	if err != nil {
		return catalog.Command{}, err
	}
	for _, cmd := range cmds {
		if strings.EqualFold(cmd.Name, name) {
			return cmd, nil
		}
	}
	return catalog.Command{}, catalog.ErrNotFound
}
