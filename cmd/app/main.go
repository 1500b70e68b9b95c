package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkmark-app/linkmark-back/internal/config"
	"github.com/linkmark-app/linkmark-back/internal/db"
	"github.com/linkmark-app/linkmark-back/internal/service"
	"github.com/linkmark-app/linkmark-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			NewLogger,
			db.NewGormClient,
			service.NewGeneral,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(*transport.HTTPServer) {}),
	)
	app.Run()
}

func NewLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	zapCfg := zap.NewProductionConfig()
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
