package agency

import (
	"github.com/certifast/certifast/internal/agency/repository"
	"github.com/certifast/certifast/internal/agency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("agency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
