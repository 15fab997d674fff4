package payment

import (
	"github.com/certifast/certifast/internal/payment/adapters"
	"github.com/certifast/certifast/internal/payment/adapters/stripe"
	"github.com/certifast/certifast/internal/payment/repository"
	paymentservice "github.com/certifast/certifast/internal/payment/service"
	"github.com/certifast/certifast/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(stripe.NewFactory())
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
