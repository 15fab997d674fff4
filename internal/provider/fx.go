package provider

import (
	"github.com/certifast/certifast/internal/provider/repository"
	"github.com/certifast/certifast/internal/provider/service"
	"go.uber.org/fx"
)

var Module = fx.Module("provider.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
