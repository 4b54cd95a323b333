package batch

import (
	"github.com/smallbiznis/shelflife/internal/batch/repository"
	"github.com/smallbiznis/shelflife/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
