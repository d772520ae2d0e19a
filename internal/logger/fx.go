package logger

import (
	"context"

	"github.com/smallbiznis/showcase/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig builds the process logger tagged with service and env.
func NewFromConfig(appCfg config.Config) (*zap.Logger, error) {
	log, err := New(appCfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.With(
		zap.String("service", appCfg.AppName),
		zap.String("env", appCfg.Environment),
	), nil
}

func syncOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.StopHook(func(context.Context) error {
		// stdout sync fails with EINVAL on some terminals
		_ = log.Sync()
		return nil
	}))
}

var Module = fx.Module("logger",
	fx.Provide(NewFromConfig),
	fx.Invoke(syncOnStop),
)
