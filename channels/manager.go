// Package channels runs the temporary voice channel lifecycle: creating a
// channel when a member joins the creation channel, deleting it once empty
// and reconciling leftovers.
package channels

import (
	"context"
	"sync"

	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/service"
	"go.uber.org/zap"
)

type Manager struct {
	gateway  gateway.Client
	guilds   *service.GuildService
	channels *service.VoiceChannelService
	auditLog *service.AuditLogService
	names    *nameTemplate
	locks    *guildLocks
	queue    *guildQueue
	log      *zap.SugaredLogger

	mu         sync.Mutex
	reconciled map[string]struct{}
}

func NewManager(
	gw gateway.Client,
	guilds *service.GuildService,
	channels *service.VoiceChannelService,
	auditLog *service.AuditLogService,
	cfg config.VoiceConfig,
	log *zap.SugaredLogger,
) (*Manager, error) {
	names, err := newNameTemplate(cfg.DefaultNameTemplate)
	if err != nil {
		return nil, err
	}
	return &Manager{
		gateway:    gw,
		guilds:     guilds,
		channels:   channels,
		auditLog:   auditLog,
		names:      names,
		locks:      newGuildLocks(cfg.MaxLocks),
		queue:      newGuildQueue(),
		log:        log,
		reconciled: make(map[string]struct{}),
	}, nil
}

// record writes an audit entry. A failed write is logged and never aborts
// the flow that produced it.
func (m *Manager) record(ctx context.Context, ev service.Event) {
	if err := m.auditLog.LogEvent(ctx, ev); err != nil {
		m.log.Errorw("Could not write audit entry", "guild_id", ev.GuildID, "event", ev.Type, "error", err)
	}
}
