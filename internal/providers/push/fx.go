package push

import (
	"github.com/smallbiznis/shelflife/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.push",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	switch cfg.Push.Provider {
	case "expo":
		return NewExpo(ExpoConfig{
			Endpoint:    cfg.Push.Endpoint,
			AccessToken: cfg.Push.Token,
			Timeout:     cfg.Push.Timeout,
		})
	default:
		return &NoOpProvider{}
	}
}
