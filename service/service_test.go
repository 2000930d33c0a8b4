package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Haibread/voicemaster/database/dbtest"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildService_CleanupStaleChannels(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	guilds := NewGuildService(repository.NewGuildRepository(db))
	channels := NewVoiceChannelService(repository.NewVoiceChannelRepository(db), repository.NewUserSettingsRepository(db))

	require.NoError(t, guilds.CreateOrUpdateGuild(ctx, "1", "owner", "10", "100"))
	require.NoError(t, channels.CreateVoiceChannel(ctx, "a", "u1", "1"))
	require.NoError(t, channels.CreateVoiceChannel(ctx, "b", "u2", "1"))

	n, err := guilds.CleanupStaleChannels(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := guilds.GetVoiceChannelsByGuild(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestVoiceChannelService_UserSettings(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewVoiceChannelService(repository.NewVoiceChannelRepository(db), repository.NewUserSettingsRepository(db))

	require.NoError(t, svc.UpdateUserChannelLimit(ctx, "u1", 0))
	settings, err := svc.GetUserSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Nil(t, settings.CustomChannelName)
	require.NotNil(t, settings.CustomChannelLimit)
	assert.Equal(t, 0, *settings.CustomChannelLimit)
}

func TestAuditLogService_LogEvent(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditLogService(repository.NewAuditLogRepository(dbtest.New(t)))

	require.NoError(t, svc.LogEvent(ctx, Event{GuildID: "1", Type: models.EventBotSetup, UserID: "u1", Details: "done"}))

	logs, err := svc.GetLatestLogs(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, "u1", *logs[0].UserID)
	assert.Nil(t, logs[0].ChannelID)
	assert.Equal(t, "done", logs[0].Details)
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestAuditLogService_GetLatestLogsClampsLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditLogService(repository.NewAuditLogRepository(dbtest.New(t)))
	for i := 0; i < 60; i++ {
		require.NoError(t, svc.LogEvent(ctx, Event{GuildID: "1", Type: models.EventListChannels, Details: fmt.Sprint(i)}))
	}

	logs, err := svc.GetLatestLogs(ctx, "1", 500)
	require.NoError(t, err)
	assert.Len(t, logs, MaxAuditLogCount)

	logs, err = svc.GetLatestLogs(ctx, "1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, DefaultAuditLogCount)
	assert.Equal(t, "59", logs[0].Details)
}
