package domain

import "time"

// Epoch is the check instant of a guild that has never been checked.
var Epoch = time.Unix(0, 0).UTC()

// GuildConfig is the per-guild notification target. Nil fields are unset.
type GuildConfig struct {
	GuildID         int64   `db:"guild_id"`
	SourceChannelID *string `db:"source_channel_id"`
	DestinationID   *string `db:"destination_id"`
	LastVideoID     *string `db:"last_video_id"`
}

// Ready reports whether both the source channel and the destination are set.
func (c *GuildConfig) Ready() bool {
	return c != nil &&
		c.SourceChannelID != nil && *c.SourceChannelID != "" &&
		c.DestinationID != nil && *c.DestinationID != ""
}

// Schedule is a guild's daily check time. CheckTime is "HH:MM" (24h) in Timezone.
type Schedule struct {
	GuildID   int64
	CheckTime string
	Timezone  string
	LastCheck time.Time
}

// Checkpoint is the durable "last done" state of a guild.
type Checkpoint struct {
	GuildID     int64
	LastCheck   time.Time
	LastVideoID string
}
