package service

import (
	"github.com/Haibread/voicemaster/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*GuildService, error) {
		return NewGuildService(do.MustInvoke[repository.GuildRepository](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*VoiceChannelService, error) {
		return NewVoiceChannelService(
			do.MustInvoke[repository.VoiceChannelRepository](i),
			do.MustInvoke[repository.UserSettingsRepository](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*AuditLogService, error) {
		return NewAuditLogService(do.MustInvoke[repository.AuditLogRepository](i)), nil
	})
}
