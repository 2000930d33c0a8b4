package models

import (
	"strings"
	"time"
)

type AuditEventType string

const (
	// Setup
	EventBotSetup      AuditEventType = "BOT_SETUP"
	EventSetupTimedOut AuditEventType = "SETUP_TIMED_OUT"
	EventSetupError    AuditEventType = "SETUP_ERROR"

	// Renames
	EventChannelRenamed         AuditEventType = "CHANNEL_RENAMED"
	EventCategoryRenamed        AuditEventType = "CATEGORY_RENAMED"
	EventChannelRenameTimedOut  AuditEventType = "CHANNEL_RENAME_TIMED_OUT"
	EventChannelRenameError     AuditEventType = "CHANNEL_RENAME_ERROR"
	EventCategoryRenameTimedOut AuditEventType = "CATEGORY_RENAME_TIMED_OUT"
	EventCategoryRenameError    AuditEventType = "CATEGORY_RENAME_ERROR"

	// Configuration
	EventCreationChannelChanged AuditEventType = "CREATION_CHANNEL_CHANGED"
	EventVoiceCategoryChanged   AuditEventType = "VOICE_CATEGORY_CHANGED"
	EventCleanupStateChanged    AuditEventType = "CLEANUP_STATE_CHANGED"

	// Member commands
	EventListChannels            AuditEventType = "LIST_CHANNELS"
	EventChannelLocked           AuditEventType = "CHANNEL_LOCKED"
	EventChannelUnlocked         AuditEventType = "CHANNEL_UNLOCKED"
	EventChannelPermit           AuditEventType = "CHANNEL_PERMIT"
	EventChannelClaimed          AuditEventType = "CHANNEL_CLAIMED"
	EventLiveChannelNameChanged  AuditEventType = "LIVE_CHANNEL_NAME_CHANGED"
	EventUserDefaultNameSet      AuditEventType = "USER_DEFAULT_NAME_SET"
	EventLiveChannelLimitChanged AuditEventType = "LIVE_CHANNEL_LIMIT_CHANGED"
	EventUserDefaultLimitSet     AuditEventType = "USER_DEFAULT_LIMIT_SET"

	// Lifecycle
	EventChannelDeleted             AuditEventType = "CHANNEL_DELETED"
	EventChannelDeletedNotFound     AuditEventType = "CHANNEL_DELETED_NOT_FOUND"
	EventChannelDeleteError         AuditEventType = "CHANNEL_DELETE_ERROR"
	EventUserLeftOwnedChannel       AuditEventType = "USER_LEFT_OWNED_CHANNEL"
	EventUserLeftTempChannel        AuditEventType = "USER_LEFT_TEMP_CHANNEL"
	EventUserMovedToExistingChannel AuditEventType = "USER_MOVED_TO_EXISTING_CHANNEL"
	EventStaleChannelCleanup        AuditEventType = "STALE_CHANNEL_CLEANUP"
	EventChannelCreated             AuditEventType = "CHANNEL_CREATED"
	EventChannelCreationFailed      AuditEventType = "CHANNEL_CREATION_FAILED"

	// Errors
	EventConfigError      AuditEventType = "CONFIG_ERROR"
	EventCategoryNotFound AuditEventType = "CATEGORY_NOT_FOUND"
	EventUnknownError     AuditEventType = "UNKNOWN_ERROR"
)

// Title turns CHANNEL_CREATED into "Channel Created".
func (t AuditEventType) Title() string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// AuditLogEntry is append-only.
type AuditLogEntry struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   string         `gorm:"not null;index" json:"guild_id"`
	EventType AuditEventType `gorm:"not null" json:"event_type"`
	UserID    *string        `json:"user_id"`
	ChannelID *string        `json:"channel_id"`
	Details   string         `json:"details"`
	Timestamp time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (*AuditLogEntry) TableName() string {
	return "audit_log_entries"
}
