package channels

import (
	"context"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/pkg/errors"
)

// ReconcileGuild deletes every empty voice channel left in the guild's
// category, except the creation channel, and purges their records. It
// returns how many records were purged. Guilds without config, with cleanup
// disabled or with an unresolvable category are left untouched.
func (m *Manager) ReconcileGuild(ctx context.Context, guildID string) (int64, error) {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	guild, err := m.guilds.GetGuildConfig(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if guild == nil || !guild.CleanupOnStartup || !guild.Configured() {
		return 0, nil
	}

	category, err := m.gateway.Channel(ctx, *guild.VoiceCategoryID)
	if err != nil || !gateway.IsCategory(category) {
		m.log.Warnw("Voice category not found, skipping startup cleanup", "guild_id", guildID, "category_id", *guild.VoiceCategoryID, "error", err)
		return 0, nil
	}

	channels, err := m.gateway.VoiceChannelsInCategory(ctx, guildID, category.ID)
	if err != nil {
		return 0, err
	}

	m.log.Infof("Running category purge for %v in guild %v", category.ID, guildID)
	var purged []string
	for _, ch := range channels {
		if guild.IsCreationChannel(ch.ID) {
			continue
		}
		members, err := m.gateway.ChannelMembers(ctx, guildID, ch.ID)
		if err != nil {
			m.log.Errorw("Could not count channel members", "channel_id", ch.ID, "error", err)
			continue
		}
		if len(members) > 0 {
			continue
		}
		if err := m.gateway.DeleteChannel(ctx, ch.ID); err != nil && !errors.Is(err, gateway.ErrNotFound) {
			m.log.Errorw("Failed to purge channel", "channel_id", ch.ID, "error", err)
			continue
		}
		purged = append(purged, ch.ID)
	}

	n, err := m.guilds.CleanupStaleChannels(ctx, purged)
	if err != nil {
		return 0, err
	}
	if len(purged) > 0 {
		m.log.Infof("Category purge complete for %v, removed %d empty channels", category.ID, len(purged))
	}
	return n, nil
}
