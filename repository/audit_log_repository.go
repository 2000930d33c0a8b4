package repository

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	Latest(ctx context.Context, guildID string, limit int) ([]models.AuditLogEntry, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	return errors.Wrapf(err, "write audit entry %s", entry.EventType)
}

// Latest returns the newest entries first.
func (r *auditLogRepository) Latest(ctx context.Context, guildID string, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, errors.Wrapf(err, "read audit log of guild %s", guildID)
}
