package main

import (
	"github.com/smallbiznis/membership/internal/clock"
	"github.com/smallbiznis/membership/internal/config"
	"github.com/smallbiznis/membership/internal/gateway"
	"github.com/smallbiznis/membership/internal/lock"
	"github.com/smallbiznis/membership/internal/logger"
	"github.com/smallbiznis/membership/internal/migration"
	"github.com/smallbiznis/membership/internal/observability"
	"github.com/smallbiznis/membership/internal/order"
	"github.com/smallbiznis/membership/internal/providers"
	"github.com/smallbiznis/membership/internal/server"
	"github.com/smallbiznis/membership/internal/subscription"
	"github.com/smallbiznis/membership/internal/user"
	"github.com/smallbiznis/membership/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		observability.Module,
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		// Functional Domains
		user.Module,
		order.Module,
		gateway.Module,
		providers.Module,
		subscription.Module,

		server.Module,
	)
	app.Run()
}
