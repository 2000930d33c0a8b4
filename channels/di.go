package channels

import (
	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/logging"
	"github.com/Haibread/voicemaster/service"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewManager(
			do.MustInvoke[gateway.Client](i),
			do.MustInvoke[*service.GuildService](i),
			do.MustInvoke[*service.VoiceChannelService](i),
			do.MustInvoke[*service.AuditLogService](i),
			cfg.Voice,
			do.MustInvoke[*logging.Logger](i).Named("channels"),
		)
	})
}
