package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// VoiceGuard answers voice-related questions from the gateway state cache:
// which channel a member sits in and whether the bot may join and speak
// there. It backs the orchestrator's permission and voice-state checks.
type VoiceGuard struct {
	session *discordgo.Session
}

// NewVoiceGuard creates a VoiceGuard reading from session's state cache.
func NewVoiceGuard(session *discordgo.Session) *VoiceGuard {
	return &VoiceGuard{session: session}
}

// CanConnectAndSpeak reports whether the bot identity holds both the
// connect and the speak permission on channelID. Either missing means a
// join attempt would fail or produce a mute bot, so both are required
// before any connection is made.
func (g *VoiceGuard) CanConnectAndSpeak(guildID, channelID string) bool {
	self := g.session.State.User
	if self == nil {
		return false
	}

	perms, err := g.session.State.UserChannelPermissions(self.ID, channelID)
	if err != nil {
		// State cache miss; fall back to the REST API.
		perms, err = g.session.UserChannelPermissions(self.ID, channelID)
		if err != nil {
			slog.Warn("discord: permission check failed",
				"guild_id", guildID, "channel_id", channelID, "error", err)
			return false
		}
	}

	const need = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak
	return perms&need == need
}

// VoiceChannelOf reports the voice channel memberID currently occupies in
// guildID. ok is false when the member is not connected to voice.
func (g *VoiceGuard) VoiceChannelOf(guildID, memberID string) (channelID string, ok bool) {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == memberID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
