package providers

import (
	"github.com/smallbiznis/shelflife/internal/providers/push"
	"github.com/smallbiznis/shelflife/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	push.Module,
	storage.Module,
)
