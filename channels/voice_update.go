package channels

import (
	"context"
	"fmt"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/service"
	"github.com/pkg/errors"
)

func (m *Manager) userLeft(ctx context.Context, ev gateway.VoiceStateEvent) {
	channelID := ev.BeforeChannelID
	record, err := m.channels.GetVoiceChannel(ctx, channelID)
	if err != nil {
		m.log.Errorw("Could not look up left channel", "channel_id", channelID, "error", err)
		return
	}
	if record == nil {
		return
	}

	eventType, ownership := models.EventUserLeftTempChannel, "temporary"
	if record.OwnerID == ev.UserID {
		eventType, ownership = models.EventUserLeftOwnedChannel, "their owned"
	}
	m.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      eventType,
		UserID:    ev.UserID,
		ChannelID: channelID,
		Details:   fmt.Sprintf("User %s (%s) left %s channel %s.", ev.DisplayName, ev.UserID, ownership, channelID),
	})

	members, err := m.gateway.ChannelMembers(ctx, ev.GuildID, channelID)
	if err != nil {
		m.log.Errorw("Could not count channel members", "channel_id", channelID, "error", err)
		return
	}
	if len(members) > 0 {
		m.log.Debugf("Temporary channel %v still has %d members, keeping it", channelID, len(members))
		return
	}
	m.deleteTempChannel(ctx, ev.GuildID, channelID)
}

// deleteTempChannel removes an empty temporary channel and its record. The
// record survives when the platform refuses the deletion.
func (m *Manager) deleteTempChannel(ctx context.Context, guildID, channelID string) {
	m.log.Debugf("Temporary channel %v is empty on guild %v, deleting it", channelID, guildID)
	err := m.gateway.DeleteChannel(ctx, channelID)
	switch {
	case err == nil:
		m.forget(ctx, channelID)
		m.record(ctx, service.Event{
			GuildID:   guildID,
			Type:      models.EventChannelDeleted,
			ChannelID: channelID,
			Details:   fmt.Sprintf("Empty temporary channel %s deleted.", channelID),
		})
	case errors.Is(err, gateway.ErrNotFound):
		m.forget(ctx, channelID)
		m.record(ctx, service.Event{
			GuildID:   guildID,
			Type:      models.EventChannelDeletedNotFound,
			ChannelID: channelID,
			Details:   fmt.Sprintf("Stale record for channel %s removed.", channelID),
		})
	default:
		m.log.Errorw("Could not delete temporary channel", "guild_id", guildID, "channel_id", channelID, "error", err)
		m.record(ctx, service.Event{
			GuildID:   guildID,
			Type:      models.EventChannelDeleteError,
			ChannelID: channelID,
			Details:   fmt.Sprintf("Error deleting channel: %v", err),
		})
	}
}

func (m *Manager) forget(ctx context.Context, channelID string) {
	if err := m.channels.DeleteVoiceChannel(ctx, channelID); err != nil {
		m.log.Errorw("Could not remove channel record", "channel_id", channelID, "error", err)
	}
}

func (m *Manager) userJoinedCreationChannel(ctx context.Context, guild *models.Guild, ev gateway.VoiceStateEvent) {
	moved, err := m.moveToExistingChannel(ctx, ev)
	if err != nil {
		m.log.Errorw("Could not check existing channel", "guild_id", ev.GuildID, "user_id", ev.UserID, "error", err)
		return
	}
	if moved {
		return
	}
	m.createAndMove(ctx, guild, ev)
}

// moveToExistingChannel moves the member to the channel they already own.
// A record whose channel is gone is dropped and false is returned so a new
// channel gets created.
func (m *Manager) moveToExistingChannel(ctx context.Context, ev gateway.VoiceStateEvent) (bool, error) {
	existing, err := m.channels.GetGuildVoiceChannelByOwner(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	ch, err := m.gateway.Channel(ctx, existing.ChannelID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return false, err
	}
	if err == nil && gateway.IsVoice(ch) {
		if err := m.gateway.MoveMember(ctx, ev.GuildID, ev.UserID, ch.ID); err != nil {
			return false, errors.Wrap(err, "move member to existing channel")
		}
		m.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      models.EventUserMovedToExistingChannel,
			UserID:    ev.UserID,
			ChannelID: ch.ID,
			Details:   fmt.Sprintf("User %s (%s) moved to their existing channel '%s' (%s).", ev.DisplayName, ev.UserID, ch.Name, ch.ID),
		})
		return true, nil
	}

	m.forget(ctx, existing.ChannelID)
	m.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      models.EventStaleChannelCleanup,
		UserID:    ev.UserID,
		ChannelID: existing.ChannelID,
		Details: fmt.Sprintf("Stale channel %s (owner: %s - %s) removed from database as Discord channel was not found.",
			existing.ChannelID, ev.DisplayName, ev.UserID),
	})
	return false, nil
}

func (m *Manager) createAndMove(ctx context.Context, guild *models.Guild, ev gateway.VoiceStateEvent) {
	name, limit := m.newChannelSettings(ctx, ev)

	if guild.VoiceCategoryID == nil || *guild.VoiceCategoryID == "" {
		m.record(ctx, service.Event{
			GuildID: ev.GuildID,
			Type:    models.EventConfigError,
			Details: "No voice category configured.",
		})
		return
	}
	categoryID := *guild.VoiceCategoryID
	category, err := m.gateway.Channel(ctx, categoryID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		m.log.Errorw("Could not look up voice category", "guild_id", ev.GuildID, "category_id", categoryID, "error", err)
		return
	}
	if err != nil || !gateway.IsCategory(category) {
		m.record(ctx, service.Event{
			GuildID: ev.GuildID,
			Type:    models.EventCategoryNotFound,
			Details: fmt.Sprintf("Configured voice category %s not found or invalid for guild %s.", categoryID, ev.GuildID),
		})
		return
	}

	created, err := m.gateway.CreateVoiceChannel(ctx, ev.GuildID, categoryID, name, limit, ev.UserID)
	if err != nil {
		m.creationFailed(ctx, ev, err)
		return
	}
	if err := m.channels.CreateVoiceChannel(ctx, created.ID, ev.UserID, ev.GuildID); err != nil {
		// never leave a channel nobody tracks
		if delErr := m.gateway.DeleteChannel(ctx, created.ID); delErr != nil {
			m.log.Errorw("Could not delete untracked channel", "channel_id", created.ID, "error", delErr)
		}
		m.creationFailed(ctx, ev, err)
		return
	}
	if err := m.gateway.MoveMember(ctx, ev.GuildID, ev.UserID, created.ID); err != nil {
		m.creationFailed(ctx, ev, err)
		return
	}

	m.log.Infow("Temporary channel created", "guild_id", ev.GuildID, "channel_id", created.ID, "owner_id", ev.UserID)
	m.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      models.EventChannelCreated,
		UserID:    ev.UserID,
		ChannelID: created.ID,
		Details:   fmt.Sprintf("New channel '%s' created with limit: %d.", name, limit),
	})
}

func (m *Manager) creationFailed(ctx context.Context, ev gateway.VoiceStateEvent, err error) {
	m.log.Errorw("Failed to create channel", "guild_id", ev.GuildID, "user_id", ev.UserID, "error", err)
	m.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventChannelCreationFailed,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("Failed to create channel: %v", err),
	})
}

// newChannelSettings returns the member's saved name and limit, falling back
// to the default name template and no limit.
func (m *Manager) newChannelSettings(ctx context.Context, ev gateway.VoiceStateEvent) (string, int) {
	var name string
	limit := 0

	settings, err := m.channels.GetUserSettings(ctx, ev.UserID)
	if err != nil {
		m.log.Warnw("Could not load user settings, using defaults", "user_id", ev.UserID, "error", err)
	}
	if settings != nil {
		if settings.CustomChannelName != nil {
			name = *settings.CustomChannelName
		}
		if settings.CustomChannelLimit != nil {
			limit = *settings.CustomChannelLimit
		}
	}
	if name == "" {
		name = m.names.render(templateVars{DisplayName: ev.DisplayName, UserID: ev.UserID})
	}
	return name, limit
}
