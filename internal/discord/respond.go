package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/ostinato/internal/playback"
)

// Reactions added to the triggering message per outcome. Played clips get a
// quiet acknowledgement; faults get a visible warning so members know the
// command was seen.
const (
	reactionPlayed  = "🔊"
	reactionNoMatch = "🤷"
	reactionError   = "⚠️"
)

// respond sends exactly one response for an invocation: a reaction for the
// silent outcomes, a short reply where the member has to act themselves.
func (b *Bot) respond(m *discordgo.MessageCreate, outcome playback.Outcome) {
	switch outcome {
	case playback.OutcomePlayed:
		b.react(m, reactionPlayed)
	case playback.OutcomeNoMatch:
		b.react(m, reactionNoMatch)
	case playback.OutcomeNoVoiceChannel:
		b.reply(m, "Join a voice channel first, then try again.")
	case playback.OutcomeNoPermission:
		b.reply(m, "I'm not allowed to connect and speak in your voice channel.")
	case playback.OutcomePlaybackError:
		b.react(m, reactionError)
	}
}

func (b *Bot) react(m *discordgo.MessageCreate, emoji string) {
	if err := b.session.MessageReactionAdd(m.ChannelID, m.ID, emoji); err != nil {
		slog.Warn("discord: add reaction failed",
			"channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	_, err := b.session.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
	if err != nil {
		slog.Warn("discord: send reply failed",
			"channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}
