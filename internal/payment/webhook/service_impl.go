package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/certifast/certifast/internal/config"
	"github.com/certifast/certifast/internal/payment/adapters"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
	paymentservice "github.com/certifast/certifast/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
	Adapters   *adapters.Registry
	Cfg        config.Config
}

// Service is the webhook front door: verify the signature, parse the
// event, hand it to the reconciler. Processing failures are recorded
// on the event row and swallowed so the provider's retry drives
// redelivery.
type Service struct {
	log        *zap.Logger
	paymentSvc *paymentservice.Service
	adapters   *adapters.Registry
	secrets    map[string]string
}

func NewService(p Params) paymentdomain.Service {
	secrets := map[string]string{}
	if secret := strings.TrimSpace(p.Cfg.StripeWebhookSecret); secret != "" {
		secrets["stripe"] = secret
	}

	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
		secrets:    secrets,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	secret := s.secrets[provider]
	if secret == "" {
		return paymentdomain.ErrInvalidConfig
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Config: map[string]any{"webhook_secret": secret},
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	if err := s.paymentSvc.ProcessEvent(ctx, event, payload); err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			return nil
		}
		// Recorded on the event row; the provider will redeliver.
		s.log.Error("payment event processing failed",
			zap.String("provider", provider),
			zap.String("event_id", event.ProviderEventID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return nil
	}

	return nil
}
