package service

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/repository"
)

const (
	DefaultAuditLogCount = 10
	MaxAuditLogCount     = 50
)

// Event describes one audit entry. Empty UserID or ChannelID are stored as NULL.
type Event struct {
	GuildID   string
	Type      models.AuditEventType
	UserID    string
	ChannelID string
	Details   string
}

type AuditLogService struct {
	entries repository.AuditLogRepository
}

func NewAuditLogService(entries repository.AuditLogRepository) *AuditLogService {
	return &AuditLogService{entries: entries}
}

func (s *AuditLogService) LogEvent(ctx context.Context, ev Event) error {
	return s.entries.Create(ctx, &models.AuditLogEntry{
		GuildID:   ev.GuildID,
		EventType: ev.Type,
		UserID:    optional(ev.UserID),
		ChannelID: optional(ev.ChannelID),
		Details:   ev.Details,
	})
}

// GetLatestLogs clamps limit to [1, MaxAuditLogCount].
func (s *AuditLogService) GetLatestLogs(ctx context.Context, guildID string, limit int) ([]models.AuditLogEntry, error) {
	switch {
	case limit < 1:
		limit = DefaultAuditLogCount
	case limit > MaxAuditLogCount:
		limit = MaxAuditLogCount
	}
	return s.entries.Latest(ctx, guildID, limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
