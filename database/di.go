package database

import (
	"github.com/Haibread/voicemaster/config"
	"github.com/samber/do/v2"
	"gorm.io/gorm"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return Open(cfg.Database)
	})
}
