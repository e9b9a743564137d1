package config

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger.  Production environments get
// JSON output at info level; everything else gets the human readable
// development encoder so local runs stay greppable.  LOG_LEVEL can
// override the default level in either mode.
func NewLogger(env string) (*zap.Logger, error) {
    var cfg zap.Config
    if env == "prod" || env == "production" {
        cfg = zap.NewProductionConfig()
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    if lv := getenv("LOG_LEVEL", ""); lv != "" {
        level, err := zapcore.ParseLevel(lv)
        if err != nil {
            return nil, err
        }
        cfg.Level = zap.NewAtomicLevelAt(level)
    }
    return cfg.Build()
}
