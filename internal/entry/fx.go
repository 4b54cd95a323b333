package entry

import (
	"github.com/smallbiznis/shelflife/internal/entry/repository"
	"github.com/smallbiznis/shelflife/internal/entry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
