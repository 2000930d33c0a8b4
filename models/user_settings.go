package models

// UserSettings holds a member's preferences for the channels created for them.
type UserSettings struct {
	UserID             string  `gorm:"primaryKey" json:"user_id"`
	CustomChannelName  *string `json:"custom_channel_name"`
	CustomChannelLimit *int    `json:"custom_channel_limit"`
}

func (*UserSettings) TableName() string {
	return "user_settings"
}
