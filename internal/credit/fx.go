package credit

import (
	"github.com/certifast/certifast/internal/credit/repository"
	"github.com/certifast/certifast/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
