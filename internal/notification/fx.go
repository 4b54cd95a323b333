package notification

import (
	"github.com/smallbiznis/shelflife/internal/notification/domain"
	"github.com/smallbiznis/shelflife/internal/notification/service"
	"github.com/smallbiznis/shelflife/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.ProvideStore[domain.PushToken]),
	fx.Provide(repository.ProvideStore[domain.Schedule]),
	fx.Provide(repository.ProvideStore[domain.Receipt]),
	fx.Provide(service.New),
)
