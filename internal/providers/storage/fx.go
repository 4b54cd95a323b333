package storage

import (
	"github.com/smallbiznis/shelflife/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) (Provider, error) {
	return NewLocal(LocalConfig{
		Dir:       cfg.Upload.Dir,
		PublicURL: cfg.Upload.PublicURL,
	})
}
