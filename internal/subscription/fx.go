package subscription

import (
	"github.com/certifast/certifast/internal/subscription/repository"
	"github.com/certifast/certifast/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
