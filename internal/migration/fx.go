package migration

import (
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		if err := Run(conn, cfg.DBType); err != nil {
			return err
		}
		log.Info("schema up to date", zap.String("dialect", cfg.DBType))

		if cfg.SeedSampleData && !cfg.IsProduction() {
			if err := seed.EnsureSampleData(conn, clk.Now()); err != nil {
				return err
			}
			log.Info("sample data ready", zap.String("store_code", seed.DemoStoreCode))
		}
		return nil
	}),
)
