package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds the zap logger used for the HTTP access log and the
// activity stream. Production environments get JSON output.
func NewZapLogger(level, environment string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == envProduction || environment == envProd {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			lvl = zapcore.InfoLevel
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// NewZapLoggerFromEnv reads LOG_LEVEL and ENVIRONMENT, falling back to a nop
// logger when the config cannot be built.
func NewZapLoggerFromEnv() *zap.Logger {
	l, err := NewZapLogger(os.Getenv("LOG_LEVEL"), os.Getenv("ENVIRONMENT"))
	if err != nil {
		return zap.NewNop()
	}
	return l
}
