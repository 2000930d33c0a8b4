package service

import (
	"context"

	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/repository"
)

type GuildService struct {
	guilds repository.GuildRepository
}

func NewGuildService(guilds repository.GuildRepository) *GuildService {
	return &GuildService{guilds: guilds}
}

// GetGuildConfig returns nil when the guild never ran setup.
func (s *GuildService) GetGuildConfig(ctx context.Context, guildID string) (*models.Guild, error) {
	return s.guilds.Get(ctx, guildID)
}

func (s *GuildService) CreateOrUpdateGuild(ctx context.Context, guildID, ownerID, categoryID, creationChannelID string) error {
	return s.guilds.CreateOrUpdate(ctx, guildID, ownerID, categoryID, creationChannelID)
}

func (s *GuildService) SetCleanupOnStartup(ctx context.Context, guildID string, enabled bool) error {
	return s.guilds.SetCleanupOnStartup(ctx, guildID, enabled)
}

func (s *GuildService) SetCreationChannel(ctx context.Context, guildID, channelID string) error {
	return s.guilds.SetCreationChannel(ctx, guildID, channelID)
}

func (s *GuildService) SetVoiceCategory(ctx context.Context, guildID, categoryID string) error {
	return s.guilds.SetVoiceCategory(ctx, guildID, categoryID)
}

func (s *GuildService) GetVoiceChannelsByGuild(ctx context.Context, guildID string) ([]models.VoiceChannel, error) {
	return s.guilds.ListVoiceChannelsByGuild(ctx, guildID)
}

func (s *GuildService) GetAllVoiceChannels(ctx context.Context) ([]models.VoiceChannel, error) {
	return s.guilds.ListVoiceChannels(ctx)
}

// CleanupStaleChannels removes the records of every listed channel in one statement.
func (s *GuildService) CleanupStaleChannels(ctx context.Context, channelIDs []string) (int64, error) {
	return s.guilds.DeleteVoiceChannels(ctx, channelIDs)
}
