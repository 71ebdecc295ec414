package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSiteSettingsHolder),
	fx.Provide(func(h *SiteSettingsHolder) SiteSettingsProvider { return h }),
)
