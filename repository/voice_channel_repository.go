package repository

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type VoiceChannelRepository interface {
	Get(ctx context.Context, channelID string) (*models.VoiceChannel, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.VoiceChannel, error)
	GetByOwnerInGuild(ctx context.Context, guildID, ownerID string) (*models.VoiceChannel, error)
	Create(ctx context.Context, channelID, ownerID, guildID string) error
	Delete(ctx context.Context, channelID string) error
	UpdateOwner(ctx context.Context, channelID, newOwnerID string) error
}

type voiceChannelRepository struct {
	db *gorm.DB
}

func NewVoiceChannelRepository(db *gorm.DB) VoiceChannelRepository {
	return &voiceChannelRepository{db: db}
}

func (r *voiceChannelRepository) Get(ctx context.Context, channelID string) (*models.VoiceChannel, error) {
	var channel models.VoiceChannel
	err := r.db.WithContext(ctx).First(&channel, "channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get voice channel %s", channelID)
	}
	return &channel, nil
}

// GetByOwner returns the oldest channel owned by ownerID.
func (r *voiceChannelRepository) GetByOwner(ctx context.Context, ownerID string) (*models.VoiceChannel, error) {
	var channel models.VoiceChannel
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get voice channel of owner %s", ownerID)
	}
	return &channel, nil
}

func (r *voiceChannelRepository) GetByOwnerInGuild(ctx context.Context, guildID, ownerID string) (*models.VoiceChannel, error) {
	var channel models.VoiceChannel
	err := r.db.WithContext(ctx).Where("guild_id = ? AND owner_id = ?", guildID, ownerID).Order("created_at").First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get voice channel of owner %s in guild %s", ownerID, guildID)
	}
	return &channel, nil
}

func (r *voiceChannelRepository) Create(ctx context.Context, channelID, ownerID, guildID string) error {
	err := r.db.WithContext(ctx).Create(&models.VoiceChannel{ChannelID: channelID, OwnerID: ownerID, GuildID: guildID}).Error
	return errors.Wrapf(err, "create voice channel %s", channelID)
}

func (r *voiceChannelRepository) Delete(ctx context.Context, channelID string) error {
	err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.VoiceChannel{}).Error
	return errors.Wrapf(err, "delete voice channel %s", channelID)
}

func (r *voiceChannelRepository) UpdateOwner(ctx context.Context, channelID, newOwnerID string) error {
	err := r.db.WithContext(ctx).Model(&models.VoiceChannel{}).Where("channel_id = ?", channelID).Update("owner_id", newOwnerID).Error
	return errors.Wrapf(err, "update owner of voice channel %s", channelID)
}
