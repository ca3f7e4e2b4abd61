package models

import "time"

// Message is an inbound chat message as seen by the dispatcher.
// It is owned by the dispatcher for the duration of processing only.
type Message struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// GuildConfig holds per-guild moderation settings. A config returned by the
// store always has a non-empty role and channel id, falling back to the
// process-wide defaults when the guild never set its own.
type GuildConfig struct {
	GuildID      string `json:"guild_id"`
	ModRoleID    string `json:"mod_role_id"`
	ModChannelID string `json:"mod_channel_id"`
}

// GuildDefaults are the process-wide fallback values applied when a guild
// has no stored value for a field.
type GuildDefaults struct {
	ModRoleID    string
	ModChannelID string
}
