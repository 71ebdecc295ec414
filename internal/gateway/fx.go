package gateway

import (
	"github.com/smallbiznis/membership/internal/config"
	"github.com/smallbiznis/membership/internal/gateway/adapters/check"
	"github.com/smallbiznis/membership/internal/gateway/adapters/free"
	"github.com/smallbiznis/membership/internal/gateway/adapters/stripe"
	"github.com/smallbiznis/membership/internal/gateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type registryParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func provideRegistry(p registryParams) *Registry {
	return NewRegistry(
		stripe.New(stripe.Config{
			LiveSecretKey:    p.Config.Stripe.LiveSecretKey,
			SandboxSecretKey: p.Config.Stripe.SandboxSecretKey,
		}, p.Log),
		check.New(p.Log),
		free.New(),
	)
}

var Module = fx.Module("gateway",
	fx.Provide(provideRegistry),
	fx.Provide(func(r *Registry) domain.Resolver { return r }),
)
