package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "sickfits-be"

var (
	log   *zap.Logger
	level = zap.NewAtomicLevel()
)

// Init builds the global logger for env. development logs colored console
// output at debug, test only warnings and above, production JSON at info.
func Init(env string) {
	var cfg zap.Config

	switch env {
	case "production":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level.SetLevel(zapcore.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level.SetLevel(cfg.Level.Level())
	cfg.Level = level

	l, err := cfg.Build(zap.AddCaller(), zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		panic(err)
	}
	log = l
}

// SetLevel changes the minimum level of the global logger, e.g. from LOG_LEVEL.
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

func L() *zap.Logger {
	if log == nil {
		Init(os.Getenv("APP_ENV"))
	}
	return log
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
