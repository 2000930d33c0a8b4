package repository

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserSettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	UpdateChannelName(ctx context.Context, userID, name string) error
	UpdateChannelLimit(ctx context.Context, userID string, limit int) error
}

type userSettingsRepository struct {
	db *gorm.DB
}

func NewUserSettingsRepository(db *gorm.DB) UserSettingsRepository {
	return &userSettingsRepository{db: db}
}

func (r *userSettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := r.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get settings of user %s", userID)
	}
	return &settings, nil
}

func (r *userSettingsRepository) UpdateChannelName(ctx context.Context, userID, name string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"custom_channel_name"}),
	}).Create(&models.UserSettings{UserID: userID, CustomChannelName: &name}).Error
	return errors.Wrapf(err, "save channel name of user %s", userID)
}

func (r *userSettingsRepository) UpdateChannelLimit(ctx context.Context, userID string, limit int) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"custom_channel_limit"}),
	}).Create(&models.UserSettings{UserID: userID, CustomChannelLimit: &limit}).Error
	return errors.Wrapf(err, "save channel limit of user %s", userID)
}
