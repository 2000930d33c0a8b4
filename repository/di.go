package repository

import (
	"github.com/samber/do/v2"
	"gorm.io/gorm"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (GuildRepository, error) {
		return NewGuildRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (VoiceChannelRepository, error) {
		return NewVoiceChannelRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (UserSettingsRepository, error) {
		return NewUserSettingsRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (AuditLogRepository, error) {
		return NewAuditLogRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
}
