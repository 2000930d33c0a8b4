package models

import "time"

type Guild struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	OwnerID           string    `gorm:"not null" json:"owner_id"`
	VoiceCategoryID   *string   `json:"voice_category_id"`
	CreationChannelID *string   `json:"creation_channel_id"`
	CleanupOnStartup  bool      `gorm:"not null;default:true" json:"cleanup_on_startup"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (*Guild) TableName() string {
	return "guilds"
}

// IsCreationChannel reports whether channelID is the guild's configured
// join-to-create channel.
func (g *Guild) IsCreationChannel(channelID string) bool {
	return g.CreationChannelID != nil && channelID != "" && *g.CreationChannelID == channelID
}

// Configured reports whether both the category and the creation channel are set.
func (g *Guild) Configured() bool {
	return g.VoiceCategoryID != nil && *g.VoiceCategoryID != "" &&
		g.CreationChannelID != nil && *g.CreationChannelID != ""
}
