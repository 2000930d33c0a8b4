package service

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/repository"
)

type VoiceChannelService struct {
	channels repository.VoiceChannelRepository
	settings repository.UserSettingsRepository
}

func NewVoiceChannelService(channels repository.VoiceChannelRepository, settings repository.UserSettingsRepository) *VoiceChannelService {
	return &VoiceChannelService{channels: channels, settings: settings}
}

func (s *VoiceChannelService) GetVoiceChannel(ctx context.Context, channelID string) (*models.VoiceChannel, error) {
	return s.channels.Get(ctx, channelID)
}

func (s *VoiceChannelService) GetVoiceChannelByOwner(ctx context.Context, ownerID string) (*models.VoiceChannel, error) {
	return s.channels.GetByOwner(ctx, ownerID)
}

// GetGuildVoiceChannelByOwner ignores channels the member owns in other guilds.
func (s *VoiceChannelService) GetGuildVoiceChannelByOwner(ctx context.Context, guildID, ownerID string) (*models.VoiceChannel, error) {
	return s.channels.GetByOwnerInGuild(ctx, guildID, ownerID)
}

func (s *VoiceChannelService) CreateVoiceChannel(ctx context.Context, channelID, ownerID, guildID string) error {
	return s.channels.Create(ctx, channelID, ownerID, guildID)
}

func (s *VoiceChannelService) DeleteVoiceChannel(ctx context.Context, channelID string) error {
	return s.channels.Delete(ctx, channelID)
}

func (s *VoiceChannelService) UpdateVoiceChannelOwner(ctx context.Context, channelID, newOwnerID string) error {
	return s.channels.UpdateOwner(ctx, channelID, newOwnerID)
}

func (s *VoiceChannelService) GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return s.settings.Get(ctx, userID)
}

func (s *VoiceChannelService) UpdateUserChannelName(ctx context.Context, userID, name string) error {
	return s.settings.UpdateChannelName(ctx, userID, name)
}

func (s *VoiceChannelService) UpdateUserChannelLimit(ctx context.Context, userID string, limit int) error {
	return s.settings.UpdateChannelLimit(ctx, userID, limit)
}
