package gateway

import (
	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/logging"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Session, error) {
		c := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*logging.Logger](i)
		return NewSession(c.Token, c.BotStatus, log.Named("gateway"))
	})
	do.Provide(injector, func(i do.Injector) (Client, error) {
		return do.MustInvoke[*Session](i), nil
	})
}
