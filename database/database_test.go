package database_test

import (
	"testing"

	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/database"
	"github.com/Haibread/voicemaster/database/dbtest"
	"github.com/Haibread/voicemaster/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestOpen_MigratesAllTables(t *testing.T) {
	db := dbtest.New(t)
	for _, table := range []interface{}{&models.Guild{}, &models.VoiceChannel{}, &models.UserSettings{}, &models.AuditLogEntry{}} {
		assert.True(t, db.Migrator().HasTable(table), "missing table for %T", table)
	}
}

func TestGuildCleanupDefaultsToTrue(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Create(&models.Guild{ID: "1", OwnerID: "2"}).Error)

	var g models.Guild
	require.NoError(t, db.First(&g, "id = ?", "1").Error)
	assert.True(t, g.CleanupOnStartup)
}

func TestVoiceChannelIDIsUnique(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Create(&models.VoiceChannel{ChannelID: "55", OwnerID: "1", GuildID: "9"}).Error)
	assert.Error(t, db.Create(&models.VoiceChannel{ChannelID: "55", OwnerID: "2", GuildID: "9"}).Error)
}
