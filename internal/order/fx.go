package order

import (
	"github.com/certifast/certifast/internal/order/repository"
	"github.com/certifast/certifast/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
