package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/service"
	"github.com/pkg/errors"
)

// sweepGrace leaves freshly created channels alone while their owner is
// still being moved in.
const sweepGrace = time.Minute

// StartSweep runs Sweep every interval until ctx is cancelled. A non-positive
// interval disables it.
func (m *Manager) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.log.Infof("Starting channel sweep every %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.log.Debug("Sweeping temporary channels")
				m.Sweep(ctx)
			}
		}
	}()
}

// Sweep purges records whose channel is gone and deletes tracked channels
// that are empty. It catches deletions that failed on the event path.
func (m *Manager) Sweep(ctx context.Context) {
	records, err := m.guilds.GetAllVoiceChannels(ctx)
	if err != nil {
		m.log.Errorw("Could not list temporary channels", "error", err)
		return
	}
	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		if time.Since(rec.CreatedAt) < sweepGrace {
			continue
		}
		m.sweepChannel(ctx, rec)
	}
}

func (m *Manager) sweepChannel(ctx context.Context, rec models.VoiceChannel) {
	unlock := m.locks.Lock(rec.GuildID)
	defer unlock()

	ch, err := m.gateway.Channel(ctx, rec.ChannelID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		m.log.Errorw("Could not look up temporary channel", "channel_id", rec.ChannelID, "error", err)
		return
	}
	if err != nil || !gateway.IsVoice(ch) {
		m.forget(ctx, rec.ChannelID)
		m.record(ctx, service.Event{
			GuildID:   rec.GuildID,
			Type:      models.EventStaleChannelCleanup,
			UserID:    rec.OwnerID,
			ChannelID: rec.ChannelID,
			Details:   fmt.Sprintf("Stale channel %s (owner: %s) removed from database as Discord channel was not found.", rec.ChannelID, rec.OwnerID),
		})
		return
	}

	members, err := m.gateway.ChannelMembers(ctx, rec.GuildID, rec.ChannelID)
	if err != nil {
		m.log.Errorw("Could not count channel members", "channel_id", rec.ChannelID, "error", err)
		return
	}
	if len(members) == 0 {
		m.deleteTempChannel(ctx, rec.GuildID, rec.ChannelID)
	}
}
