package models

import "time"

// VoiceChannel is a temporary channel provisioned by the bot.
type VoiceChannel struct {
	ChannelID string    `gorm:"primaryKey" json:"channel_id"`
	OwnerID   string    `gorm:"not null;index" json:"owner_id"`
	GuildID   string    `gorm:"not null;index" json:"guild_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (*VoiceChannel) TableName() string {
	return "voice_channels"
}
