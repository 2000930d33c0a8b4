package channels

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/database/dbtest"
	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/gateway/gatewaytest"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/repository"
	"github.com/Haibread/voicemaster/service"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	guildID    = "g1"
	categoryID = "cat"
	joinID     = "join"
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	gw       *gatewaytest.Fake
	guilds   *service.GuildService
	channels *service.VoiceChannelService
	audit    *service.AuditLogService
	m        *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		gw:       gatewaytest.New(),
		guilds:   service.NewGuildService(repository.NewGuildRepository(db)),
		channels: service.NewVoiceChannelService(repository.NewVoiceChannelRepository(db), repository.NewUserSettingsRepository(db)),
		audit:    service.NewAuditLogService(repository.NewAuditLogRepository(db)),
	}
	f.m = f.manager(t, f.gw)

	f.gw.AddGuild(guildID, "admin")
	f.gw.AddCategory(guildID, categoryID)
	f.gw.AddVoiceChannel(guildID, categoryID, joinID)
	require.NoError(t, f.guilds.CreateOrUpdateGuild(f.ctx, guildID, "admin", categoryID, joinID))
	return f
}

func (f *fixture) manager(t *testing.T, gw gateway.Client) *Manager {
	t.Helper()
	m, err := NewManager(gw, f.guilds, f.channels, f.audit, config.VoiceConfig{
		MaxLocks:            100,
		DefaultNameTemplate: "{{.DisplayName}}'s Channel",
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return m
}

// slowGateway makes deletes and moves take a while, like the real API.
type slowGateway struct {
	*gatewaytest.Fake
	latency time.Duration
}

func (g slowGateway) DeleteChannel(ctx context.Context, channelID string) error {
	time.Sleep(g.latency)
	return g.Fake.DeleteChannel(ctx, channelID)
}

func (g slowGateway) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	time.Sleep(g.latency)
	return g.Fake.MoveMember(ctx, guildID, userID, channelID)
}

// track registers an existing temporary channel owned by ownerID.
func (f *fixture) track(t *testing.T, channelID, ownerID string) {
	t.Helper()
	f.gw.AddVoiceChannel(guildID, categoryID, channelID)
	require.NoError(t, f.channels.CreateVoiceChannel(f.ctx, channelID, ownerID, guildID))
}

func (f *fixture) move(userID, name, from, to string) {
	f.gw.Connect(guildID, userID, to)
	f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{
		GuildID:         guildID,
		UserID:          userID,
		DisplayName:     name,
		BeforeChannelID: from,
		AfterChannelID:  to,
	})
}

func (f *fixture) events(t *testing.T) []models.AuditLogEntry {
	t.Helper()
	entries, err := f.audit.GetLatestLogs(f.ctx, guildID, service.MaxAuditLogCount)
	require.NoError(t, err)
	return entries
}

func (f *fixture) eventTypes(t *testing.T) []models.AuditEventType {
	t.Helper()
	var types []models.AuditEventType
	entries := f.events(t)
	for i := len(entries) - 1; i >= 0; i-- {
		types = append(types, entries[i].EventType)
	}
	return types
}

func (f *fixture) record(t *testing.T, channelID string) *models.VoiceChannel {
	t.Helper()
	rec, err := f.channels.GetVoiceChannel(f.ctx, channelID)
	require.NoError(t, err)
	return rec
}

func TestJoinCreatesChannelAndMovesMember(t *testing.T) {
	f := newFixture(t)

	f.move("u1", "Ana", "", joinID)

	require.Len(t, f.gw.Created, 1)
	created := f.gw.Created[0]
	assert.Equal(t, "Ana's Channel", created.Name)
	assert.Equal(t, 0, created.UserLimit)
	assert.Equal(t, categoryID, created.ParentID)

	rec := f.record(t, created.ID)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, []gatewaytest.Move{{GuildID: guildID, UserID: "u1", ChannelID: created.ID}}, f.gw.Moves)

	entries := f.events(t)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EventChannelCreated, entries[0].EventType)
	assert.Equal(t, "New channel 'Ana's Channel' created with limit: 0.", entries[0].Details)
}

func TestJoinUsesSavedSettings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.channels.UpdateUserChannelName(f.ctx, "u1", "Den"))
	require.NoError(t, f.channels.UpdateUserChannelLimit(f.ctx, "u1", 5))

	f.move("u1", "Ana", "", joinID)

	require.Len(t, f.gw.Created, 1)
	assert.Equal(t, "Den", f.gw.Created[0].Name)
	assert.Equal(t, 5, f.gw.Created[0].UserLimit)
}

func TestJoinMovesToExistingChannel(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")

	f.move("u1", "Ana", "", joinID)

	assert.Empty(t, f.gw.Created)
	assert.Equal(t, []gatewaytest.Move{{GuildID: guildID, UserID: "u1", ChannelID: "temp1"}}, f.gw.Moves)
	assert.Equal(t, []models.AuditEventType{models.EventUserMovedToExistingChannel}, f.eventTypes(t))
}

func TestJoinDropsStaleRecordThenCreates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.channels.CreateVoiceChannel(f.ctx, "gone", "u1", guildID))

	f.move("u1", "Ana", "", joinID)

	assert.Nil(t, f.record(t, "gone"))
	require.Len(t, f.gw.Created, 1)
	assert.NotNil(t, f.record(t, f.gw.Created[0].ID))
	assert.Equal(t, []models.AuditEventType{models.EventStaleChannelCleanup, models.EventChannelCreated}, f.eventTypes(t))
}

func TestJoinIgnoresChannelOwnedInOtherGuild(t *testing.T) {
	f := newFixture(t)
	f.gw.AddVoiceChannel("g2", "other-cat", "elsewhere")
	require.NoError(t, f.channels.CreateVoiceChannel(f.ctx, "elsewhere", "u1", "g2"))

	f.move("u1", "Ana", "", joinID)

	require.Len(t, f.gw.Created, 1)
	assert.NotNil(t, f.record(t, "elsewhere"))
}

func TestJoinWithMissingCategory(t *testing.T) {
	f := newFixture(t)
	f.gw.RemoveChannel(categoryID)

	f.move("u1", "Ana", "", joinID)

	assert.Empty(t, f.gw.Created)
	assert.Equal(t, []models.AuditEventType{models.EventCategoryNotFound}, f.eventTypes(t))
}

func TestJoinCategoryLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.ChannelErr[categoryID] = errors.New("HTTP 502 Bad Gateway")

	f.move("u1", "Ana", "", joinID)

	assert.Empty(t, f.gw.Created)
	assert.Empty(t, f.eventTypes(t), "a failed lookup is not a missing category")
}

func TestJoinCreateFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.CreateErr = errors.New("Missing Permissions")

	f.move("u1", "Ana", "", joinID)

	entries := f.events(t)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EventChannelCreationFailed, entries[0].EventType)
	assert.Contains(t, entries[0].Details, "Missing Permissions")

	all, err := f.guilds.GetAllVoiceChannels(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestJoinMoveFailureAfterCreate(t *testing.T) {
	f := newFixture(t)
	f.gw.MoveErr = errors.New("member left voice")

	f.move("u1", "Ana", "", joinID)

	require.Len(t, f.gw.Created, 1)
	assert.NotNil(t, f.record(t, f.gw.Created[0].ID), "channel stays tracked so it can be cleaned up")
	assert.Equal(t, []models.AuditEventType{models.EventChannelCreationFailed}, f.eventTypes(t))
}

func TestConcurrentJoinsCreateOneChannel(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{
				GuildID: guildID, UserID: "u1", DisplayName: "Ana", AfterChannelID: joinID,
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.gw.CreatedCount())
	all, err := f.guilds.GetAllVoiceChannels(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentLeavesDeleteOnce(t *testing.T) {
	f := newFixture(t)
	f.m = f.manager(t, slowGateway{Fake: f.gw, latency: 20 * time.Millisecond})
	f.track(t, "temp1", "u1")

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2"} {
		user := user
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{
				GuildID: guildID, UserID: user, DisplayName: user, BeforeChannelID: "temp1",
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.gw.DeletedCount("temp1"))
	assert.Nil(t, f.record(t, "temp1"))
	types := f.eventTypes(t)
	assert.Len(t, types, 2)
	assert.Contains(t, types, models.EventChannelDeleted)
	assert.NotContains(t, types, models.EventChannelDeletedNotFound)
}

func TestQueuedEventsRunInDeliveryOrder(t *testing.T) {
	f := newFixture(t)
	f.m = f.manager(t, slowGateway{Fake: f.gw, latency: time.Millisecond})

	names := []string{"Ana", "Bo", "Cy", "Di", "Ed"}
	for i, name := range names {
		f.m.QueueVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{
			GuildID: guildID, UserID: fmt.Sprintf("u%d", i), DisplayName: name, AfterChannelID: joinID,
		})
	}
	done := make(chan struct{})
	f.m.queue.Submit(guildID, func() { close(done) })
	<-done

	var got []string
	for _, ch := range f.gw.Created {
		got = append(got, ch.Name)
	}
	assert.Equal(t, []string{"Ana's Channel", "Bo's Channel", "Cy's Channel", "Di's Channel", "Ed's Channel"}, got)
}

func TestLeaveDeletesEmptyChannel(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")

	f.move("u1", "Ana", "temp1", "")

	assert.Equal(t, 1, f.gw.DeletedCount("temp1"))
	assert.False(t, f.gw.HasChannel("temp1"))
	assert.Nil(t, f.record(t, "temp1"))
	assert.Equal(t, []models.AuditEventType{models.EventUserLeftOwnedChannel, models.EventChannelDeleted}, f.eventTypes(t))
}

func TestLeaveKeepsOccupiedChannel(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	f.gw.Connect(guildID, "u1", "temp1")

	f.move("u2", "Bo", "temp1", "")

	assert.Zero(t, f.gw.DeletedCount("temp1"))
	assert.NotNil(t, f.record(t, "temp1"))
	assert.Equal(t, []models.AuditEventType{models.EventUserLeftTempChannel}, f.eventTypes(t))
}

func TestLeaveChannelAlreadyGone(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.channels.CreateVoiceChannel(f.ctx, "gone", "u1", guildID))

	f.move("u1", "Ana", "gone", "")

	assert.Nil(t, f.record(t, "gone"))
	assert.Equal(t, []models.AuditEventType{models.EventUserLeftOwnedChannel, models.EventChannelDeletedNotFound}, f.eventTypes(t))
}

func TestLeaveDeleteErrorKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	f.gw.DeleteErr["temp1"] = errors.New("HTTP 403 Forbidden")

	f.move("u1", "Ana", "temp1", "")

	assert.NotNil(t, f.record(t, "temp1"))
	entries := f.events(t)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EventChannelDeleteError, entries[0].EventType)
	assert.Contains(t, entries[0].Details, "HTTP 403 Forbidden")
}

func TestMoveBetweenTempAndCreationChannel(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")

	// leaving temp1 for the creation channel: temp1 is deleted, then the
	// stale record is gone so a fresh channel is created
	f.move("u1", "Ana", "temp1", joinID)

	assert.Equal(t, 1, f.gw.DeletedCount("temp1"))
	require.Len(t, f.gw.Created, 1)
	assert.Equal(t, []models.AuditEventType{
		models.EventUserLeftOwnedChannel,
		models.EventChannelDeleted,
		models.EventChannelCreated,
	}, f.eventTypes(t))
}

func TestIgnoredEvents(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")

	f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{GuildID: guildID, UserID: "b1", IsBot: true, AfterChannelID: joinID})
	f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{UserID: "u1", AfterChannelID: joinID})
	f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{GuildID: guildID, UserID: "u1", BeforeChannelID: "temp1", AfterChannelID: "temp1"})
	f.m.HandleVoiceStateUpdate(f.ctx, gateway.VoiceStateEvent{GuildID: "unknown", UserID: "u1", AfterChannelID: joinID})
	f.move("u2", "Bo", joinID, "")

	assert.Empty(t, f.gw.Created)
	assert.Empty(t, f.gw.Deleted)
	assert.Empty(t, f.events(t))
}

func TestReconcileGuild(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	f.track(t, "temp2", "u2")
	f.gw.AddVoiceChannel(guildID, categoryID, "untracked")
	f.gw.AddVoiceChannel(guildID, "elsewhere", "outside")
	f.gw.Connect(guildID, "u2", "temp2")

	n, err := f.m.ReconcileGuild(f.ctx, guildID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ElementsMatch(t, []string{"temp1", "untracked"}, f.gw.Deleted)
	assert.True(t, f.gw.HasChannel(joinID))
	assert.Nil(t, f.record(t, "temp1"))
	assert.NotNil(t, f.record(t, "temp2"))
}

func TestReconcileGuildSkipsUnresolvableCategory(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	f.gw.RemoveChannel(categoryID)

	n, err := f.m.ReconcileGuild(f.ctx, guildID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.gw.Deleted)
	assert.NotNil(t, f.record(t, "temp1"))
}

func TestReconcileGuildRespectsCleanupFlag(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	require.NoError(t, f.guilds.SetCleanupOnStartup(f.ctx, guildID, false))

	n, err := f.m.ReconcileGuild(f.ctx, guildID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.gw.Deleted)
}

func TestReconcileGuildContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")
	f.track(t, "temp2", "u2")
	f.gw.DeleteErr["temp1"] = errors.New("HTTP 500")

	n, err := f.m.ReconcileGuild(f.ctx, guildID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NotNil(t, f.record(t, "temp1"))
	assert.Nil(t, f.record(t, "temp2"))
}

func TestReconcileWaitsForJoinInProgress(t *testing.T) {
	f := newFixture(t)
	f.m = f.manager(t, slowGateway{Fake: f.gw, latency: 30 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.move("u1", "Ana", "", joinID)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		f.m.HandleGuildAvailable(f.ctx, guildID)
	}()
	wg.Wait()

	require.Equal(t, 1, f.gw.CreatedCount())
	created := f.gw.Created[0].ID
	assert.True(t, f.gw.HasChannel(created))
	assert.Zero(t, f.gw.DeletedCount(created))
	assert.NotNil(t, f.record(t, created))
	assert.Equal(t, []models.AuditEventType{models.EventChannelCreated}, f.eventTypes(t))
}

func TestHandleGuildAvailableRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.track(t, "temp1", "u1")

	f.m.HandleGuildAvailable(f.ctx, guildID)
	assert.Equal(t, 1, f.gw.DeletedCount("temp1"))

	f.track(t, "temp2", "u2")
	f.m.HandleGuildAvailable(f.ctx, guildID)
	assert.Zero(t, f.gw.DeletedCount("temp2"))
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-time.Hour)
	f.gw.AddVoiceChannel(guildID, categoryID, "empty")
	f.gw.AddVoiceChannel(guildID, categoryID, "busy")
	f.gw.AddVoiceChannel(guildID, categoryID, "fresh")
	f.gw.Connect(guildID, "u3", "busy")
	for _, rec := range []models.VoiceChannel{
		{ChannelID: "gone", OwnerID: "u1", GuildID: guildID, CreatedAt: old},
		{ChannelID: "empty", OwnerID: "u2", GuildID: guildID, CreatedAt: old},
		{ChannelID: "busy", OwnerID: "u3", GuildID: guildID, CreatedAt: old},
		{ChannelID: "fresh", OwnerID: "u4", GuildID: guildID},
	} {
		rec := rec
		require.NoError(t, f.db.Create(&rec).Error)
	}

	f.m.Sweep(f.ctx)

	assert.Nil(t, f.record(t, "gone"))
	assert.Nil(t, f.record(t, "empty"))
	assert.False(t, f.gw.HasChannel("empty"))
	assert.NotNil(t, f.record(t, "busy"))
	assert.NotNil(t, f.record(t, "fresh"))
	assert.ElementsMatch(t, []models.AuditEventType{models.EventStaleChannelCleanup, models.EventChannelDeleted}, f.eventTypes(t))
}

func TestNewManagerRejectsBadTemplate(t *testing.T) {
	db := dbtest.New(t)
	_, err := NewManager(gatewaytest.New(),
		service.NewGuildService(repository.NewGuildRepository(db)),
		service.NewVoiceChannelService(repository.NewVoiceChannelRepository(db), repository.NewUserSettingsRepository(db)),
		service.NewAuditLogService(repository.NewAuditLogRepository(db)),
		config.VoiceConfig{MaxLocks: 1, DefaultNameTemplate: "{{.DisplayName"},
		zap.NewNop().Sugar())
	assert.Error(t, err)
}
