package dailycheck

import (
	"github.com/smallbiznis/shelflife/internal/dailycheck/repository"
	"github.com/smallbiznis/shelflife/internal/dailycheck/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dailycheck.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
