package channels

import (
	"context"

	"github.com/Haibread/voicemaster/gateway"
)

// QueueVoiceStateUpdate hands the event to the guild's queue so that events
// of one guild are evaluated in delivery order. It never blocks.
func (m *Manager) QueueVoiceStateUpdate(ctx context.Context, ev gateway.VoiceStateEvent) {
	if ev.GuildID == "" {
		return
	}
	m.queue.Submit(ev.GuildID, func() {
		m.HandleVoiceStateUpdate(ctx, ev)
	})
}

// QueueGuildAvailable queues HandleGuildAvailable behind the guild's pending
// voice state events.
func (m *Manager) QueueGuildAvailable(ctx context.Context, guildID string) {
	m.queue.Submit(guildID, func() {
		m.HandleGuildAvailable(ctx, guildID)
	})
}

// HandleVoiceStateUpdate evaluates the channel the member left and the one
// they joined. Both may apply to a single move. The guild stays locked for
// the whole evaluation.
func (m *Manager) HandleVoiceStateUpdate(ctx context.Context, ev gateway.VoiceStateEvent) {
	if ev.IsBot || ev.GuildID == "" || ev.BeforeChannelID == ev.AfterChannelID {
		return
	}

	unlock := m.locks.Lock(ev.GuildID)
	defer unlock()

	guild, err := m.guilds.GetGuildConfig(ctx, ev.GuildID)
	if err != nil {
		m.log.Errorw("Could not load guild config", "guild_id", ev.GuildID, "error", err)
		return
	}
	if guild == nil || guild.CreationChannelID == nil || *guild.CreationChannelID == "" {
		return
	}

	if ev.BeforeChannelID != "" && !guild.IsCreationChannel(ev.BeforeChannelID) {
		m.userLeft(ctx, ev)
	}
	if guild.IsCreationChannel(ev.AfterChannelID) {
		m.userJoinedCreationChannel(ctx, guild, ev)
	}
}

// HandleGuildAvailable reconciles a guild the first time it shows up on the
// connection. Later availability events for the same guild are ignored.
func (m *Manager) HandleGuildAvailable(ctx context.Context, guildID string) {
	m.mu.Lock()
	if _, done := m.reconciled[guildID]; done {
		m.mu.Unlock()
		return
	}
	m.reconciled[guildID] = struct{}{}
	m.mu.Unlock()

	if _, err := m.ReconcileGuild(ctx, guildID); err != nil {
		m.log.Errorw("Startup cleanup failed", "guild_id", guildID, "error", err)
	}
}
