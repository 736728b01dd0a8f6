package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はzapのロガーを作る。
// 本番はJSON、それ以外は開発用の読みやすい形式。
func New(production bool, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
