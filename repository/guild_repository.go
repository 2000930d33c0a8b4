package repository

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GuildRepository interface {
	Get(ctx context.Context, guildID string) (*models.Guild, error)
	CreateOrUpdate(ctx context.Context, guildID, ownerID, categoryID, creationChannelID string) error
	SetCleanupOnStartup(ctx context.Context, guildID string, enabled bool) error
	SetCreationChannel(ctx context.Context, guildID, channelID string) error
	SetVoiceCategory(ctx context.Context, guildID, categoryID string) error
	ListVoiceChannels(ctx context.Context) ([]models.VoiceChannel, error)
	ListVoiceChannelsByGuild(ctx context.Context, guildID string) ([]models.VoiceChannel, error)
	DeleteVoiceChannels(ctx context.Context, channelIDs []string) (int64, error)
}

type guildRepository struct {
	db *gorm.DB
}

func NewGuildRepository(db *gorm.DB) GuildRepository {
	return &guildRepository{db: db}
}

func (r *guildRepository) Get(ctx context.Context, guildID string) (*models.Guild, error) {
	var guild models.Guild
	err := r.db.WithContext(ctx).First(&guild, "id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get guild %s", guildID)
	}
	return &guild, nil
}

func (r *guildRepository) CreateOrUpdate(ctx context.Context, guildID, ownerID, categoryID, creationChannelID string) error {
	guild := models.Guild{
		ID:                guildID,
		OwnerID:           ownerID,
		VoiceCategoryID:   &categoryID,
		CreationChannelID: &creationChannelID,
		CleanupOnStartup:  true,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "voice_category_id", "creation_channel_id", "updated_at"}),
	}).Create(&guild).Error
	return errors.Wrapf(err, "save guild %s", guildID)
}

func (r *guildRepository) SetCleanupOnStartup(ctx context.Context, guildID string, enabled bool) error {
	err := r.db.WithContext(ctx).Model(&models.Guild{}).Where("id = ?", guildID).Update("cleanup_on_startup", enabled).Error
	return errors.Wrapf(err, "set cleanup flag for guild %s", guildID)
}

func (r *guildRepository) SetCreationChannel(ctx context.Context, guildID, channelID string) error {
	err := r.db.WithContext(ctx).Model(&models.Guild{}).Where("id = ?", guildID).Update("creation_channel_id", channelID).Error
	return errors.Wrapf(err, "set creation channel for guild %s", guildID)
}

func (r *guildRepository) SetVoiceCategory(ctx context.Context, guildID, categoryID string) error {
	err := r.db.WithContext(ctx).Model(&models.Guild{}).Where("id = ?", guildID).Update("voice_category_id", categoryID).Error
	return errors.Wrapf(err, "set voice category for guild %s", guildID)
}

func (r *guildRepository) ListVoiceChannels(ctx context.Context) ([]models.VoiceChannel, error) {
	var channels []models.VoiceChannel
	err := r.db.WithContext(ctx).Order("created_at").Find(&channels).Error
	return channels, errors.Wrap(err, "list voice channels")
}

func (r *guildRepository) ListVoiceChannelsByGuild(ctx context.Context, guildID string) ([]models.VoiceChannel, error) {
	var channels []models.VoiceChannel
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("created_at").Find(&channels).Error
	return channels, errors.Wrapf(err, "list voice channels of guild %s", guildID)
}

func (r *guildRepository) DeleteVoiceChannels(ctx context.Context, channelIDs []string) (int64, error) {
	if len(channelIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("channel_id IN ?", channelIDs).Delete(&models.VoiceChannel{})
	return res.RowsAffected, errors.Wrap(res.Error, "purge voice channels")
}
