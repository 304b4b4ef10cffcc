package playback

// Outcome classifies how a command invocation terminated. Every invocation
// maps to exactly one outcome, and the messaging layer maps each outcome to
// exactly one user-visible response. Recoverable conditions (no match, no
// permission) are outcomes, never errors.
type Outcome int

const (
	// OutcomePlayed means the clip streamed to completion.
	OutcomePlayed Outcome = iota

	// OutcomeNoVoiceChannel means the triggering member is not in a voice channel.
	OutcomeNoVoiceChannel

	// OutcomeNoMatch means no clip survived query resolution.
	OutcomeNoMatch

	// OutcomeNoPermission means the bot lacks connect or speak capability
	// on the target channel. No connection was attempted.
	OutcomeNoPermission

	// OutcomePlaybackError means resolution, transcoding, or transport
	// failed after the permission check. Not retried — a partially-played
	// clip has no well-defined resume point.
	OutcomePlaybackError
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePlayed:
		return "played"
	case OutcomeNoVoiceChannel:
		return "no_voice_channel"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeNoPermission:
		return "no_permission"
	case OutcomePlaybackError:
		return "playback_error"
	default:
		return "unknown"
	}
}
