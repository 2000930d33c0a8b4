package commands

import (
	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/logging"
	"github.com/Haibread/voicemaster/service"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewRouter(
			do.MustInvoke[gateway.Client](i),
			do.MustInvoke[*service.GuildService](i),
			do.MustInvoke[*service.VoiceChannelService](i),
			do.MustInvoke[*service.AuditLogService](i),
			cfg.Voice.PromptTimeout,
			do.MustInvoke[*logging.Logger](i).Named("commands"),
		), nil
	})
}
