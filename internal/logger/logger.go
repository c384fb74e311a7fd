package logger

import (
	"fmt"
	"testing"

	"github.com/veiloq/testdb/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// InitLogger selects the logger for a test database: the logger given with
// config.WithLogger, else a zaptest logger bound to t, else a zap
// development logger writing to stderr.
func InitLogger(t testing.TB, settings *config.Settings) (*zap.Logger, error) {
	if settings == nil {
		settings = config.ApplyOptions()
	}

	if l := settings.Logger(); l != nil {
		if len(settings.ZapOptions()) > 0 {
			l = l.WithOptions(settings.ZapOptions()...)
		}
		return l, nil
	}

	if t != nil {
		var zaptestOpts []zaptest.LoggerOption
		if lvl := settings.ZapTestLevel(); lvl != nil {
			zaptestOpts = append(zaptestOpts, zaptest.Level(*lvl))
		}
		if len(settings.ZapOptions()) > 0 {
			zaptestOpts = append(zaptestOpts, zaptest.WrapOptions(settings.ZapOptions()...))
		}
		return zaptest.NewLogger(t, zaptestOpts...), nil
	}

	devConfig := zap.NewDevelopmentConfig()
	devConfig.OutputPaths = []string{"stderr"}
	devConfig.ErrorOutputPaths = []string{"stderr"}
	l, err := devConfig.Build(settings.ZapOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create default zap logger: %w", err)
	}
	return l, nil
}
