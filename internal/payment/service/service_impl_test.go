package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/config"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	creditrepo "github.com/certifast/certifast/internal/credit/repository"
	creditservice "github.com/certifast/certifast/internal/credit/service"
	"github.com/certifast/certifast/internal/payment/adapters"
	"github.com/certifast/certifast/internal/payment/adapters/stripe"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
	paymentrepo "github.com/certifast/certifast/internal/payment/repository"
	paymentservice "github.com/certifast/certifast/internal/payment/service"
	paymentwebhook "github.com/certifast/certifast/internal/payment/webhook"
	subscriptiondomain "github.com/certifast/certifast/internal/subscription/domain"
	subscriptionrepo "github.com/certifast/certifast/internal/subscription/repository"
	subscriptionservice "github.com/certifast/certifast/internal/subscription/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type fixture struct {
	db              *gorm.DB
	webhookSvc      paymentdomain.Service
	paymentSvc      *paymentservice.Service
	creditSvc       creditdomain.Service
	subscriptionSvc subscriptiondomain.Service
	node            *snowflake.Node
	agencyID        snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&agencydomain.Agency{},
		&creditdomain.Transaction{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.History{},
		&paymentdomain.EventRecord{},
	))

	node, err := snowflake.NewNode(20)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))

	plans, err := config.NewPlanCatalogHolder(zap.NewNop())
	require.NoError(t, err)
	plans.StoreForTest(config.DefaultPlanCatalog())

	creditSvc := creditservice.New(creditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  creditrepo.Provide(),
	})
	subscriptionSvc := subscriptionservice.New(subscriptionservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  subscriptionrepo.Provide(),
		Plans: plans,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           fake,
		Repo:            paymentrepo.Provide(),
		CreditSvc:       creditSvc,
		SubscriptionSvc: subscriptionSvc,
		Plans:           plans,
	})
	webhookSvc := paymentwebhook.NewService(paymentwebhook.Params{
		Log:        zap.NewNop(),
		PaymentSvc: paymentSvc,
		Adapters:   adapters.NewRegistry(stripe.NewFactory()),
		Cfg:        config.Config{StripeWebhookSecret: webhookSecret},
	})

	agencyID := node.Generate()
	require.NoError(t, db.Create(&agencydomain.Agency{
		ID:    agencyID,
		Name:  "Imovia",
		Email: "ops@imovia.example",
	}).Error)

	return &fixture{
		db:              db,
		webhookSvc:      webhookSvc,
		paymentSvc:      paymentSvc,
		creditSvc:       creditSvc,
		subscriptionSvc: subscriptionSvc,
		node:            node,
		agencyID:        agencyID,
	}
}

func signedHeaders(t *testing.T, payload []byte) http.Header {
	t.Helper()

	timestamp := "1756710000"
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, err := mac.Write([]byte(timestamp + "." + string(payload)))
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func stripeEventPayload(t *testing.T, eventID, eventType string, object map[string]any) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    eventType,
		"created": 1756710000,
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func (f *fixture) purchasePayload(t *testing.T, eventID, intentID string, credits int64) []byte {
	return stripeEventPayload(t, eventID, "payment_intent.succeeded", map[string]any{
		"id":              intentID,
		"amount":          2000,
		"amount_received": 2000,
		"currency":        "eur",
		"metadata": map[string]any{
			"agency_id": f.agencyID.String(),
			"credits":   fmt.Sprintf("%d", credits),
		},
	})
}

func TestIngestPurchaseCreditsLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	payload := f.purchasePayload(t, "evt_1", "pi_123", 20)
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))

	balance, err := f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditBalance)

	txns, err := f.creditSvc.Transactions(ctx, f.agencyID, creditdomain.ListTransactionsRequest{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, creditdomain.TypePurchase, txns[0].Type)
	assert.Equal(t, "pi_123", txns[0].ReferenceID)
}

func TestIngestDuplicateEventCreditsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	payload := f.purchasePayload(t, "evt_1", "pi_123", 20)
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))

	balance, err := f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditBalance)
}

func TestIngestSamePaymentDifferentEventIDCreditsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.purchasePayload(t, "evt_1", "pi_123", 20)
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", first, signedHeaders(t, first)))

	second := f.purchasePayload(t, "evt_2", "pi_123", 20)
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", second, signedHeaders(t, second)))

	balance, err := f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditBalance)
}

func TestIngestRejectsBadSignature(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	payload := f.purchasePayload(t, "evt_1", "pi_123", 20)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1756710000,v1=deadbeef")

	err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	balance, err := f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.CreditBalance)
}

func TestIngestUnknownEventTypeIgnored(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	payload := stripeEventPayload(t, "evt_1", "charge.refunded", map[string]any{"id": "ch_1"})
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.EventRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestIngestUnknownProvider(t *testing.T) {
	f := setup(t)

	err := f.webhookSvc.IngestWebhook(context.Background(), "paypal", []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)
}

func TestSubscriptionLifecycleEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created := stripeEventPayload(t, "evt_sub_1", "customer.subscription.created", map[string]any{
		"id":                 "sub_abc",
		"status":             "active",
		"current_period_end": 1759302000,
		"metadata": map[string]any{
			"agency_id": f.agencyID.String(),
			"tier":      "professional",
		},
	})
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", created, signedHeaders(t, created)))

	subscription, err := f.subscriptionSvc.Get(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, "professional", subscription.Tier)
	assert.Equal(t, subscriptiondomain.StatusActive, subscription.Status)

	var agency agencydomain.Agency
	require.NoError(t, f.db.Where("id = ?", f.agencyID).First(&agency).Error)
	assert.Equal(t, int64(50), agency.IncludedCredits)

	invoice := stripeEventPayload(t, "evt_inv_1", "invoice.paid", map[string]any{
		"id":           "in_123",
		"amount_paid":  9900,
		"currency":     "eur",
		"subscription": "sub_abc",
		"period_end":   1761980400,
		"metadata":     map[string]any{"agency_id": f.agencyID.String()},
	})
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", invoice, signedHeaders(t, invoice)))

	balance, err := f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.CreditBalance)

	txns, err := f.creditSvc.Transactions(ctx, f.agencyID, creditdomain.ListTransactionsRequest{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, creditdomain.TypeSubscriptionGrant, txns[0].Type)
	assert.Equal(t, "in_123", txns[0].ReferenceID)

	deleted := stripeEventPayload(t, "evt_sub_2", "customer.subscription.deleted", map[string]any{
		"id":       "sub_abc",
		"status":   "canceled",
		"metadata": map[string]any{"agency_id": f.agencyID.String(), "tier": "professional"},
	})
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", deleted, signedHeaders(t, deleted)))

	require.NoError(t, f.db.Where("id = ?", f.agencyID).First(&agency).Error)
	assert.Equal(t, int64(0), agency.IncludedCredits)
	// Granted credits stay spendable until consumed.
	balance, err = f.creditSvc.Balance(ctx, f.agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.CreditBalance)
}

func TestProcessingFailureRecordedAndRetried(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ghostAgency := f.node.Generate()
	payload := stripeEventPayload(t, "evt_1", "payment_intent.succeeded", map[string]any{
		"id":              "pi_404",
		"amount_received": 1000,
		"currency":        "eur",
		"metadata": map[string]any{
			"agency_id": ghostAgency.String(),
			"credits":   "10",
		},
	})

	// The handler swallows the failure so the provider retries later.
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))

	failed, err := f.paymentSvc.FailedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "evt_1", failed[0].ProviderEventID)
	assert.Nil(t, failed[0].ProcessedAt)
	assert.NotEmpty(t, failed[0].LastError)

	// Once the agency exists, the redelivered event processes cleanly.
	require.NoError(t, f.db.Create(&agencydomain.Agency{
		ID:    ghostAgency,
		Name:  "Nova",
		Email: "ops@nova.example",
	}).Error)
	require.NoError(t, f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(t, payload)))

	failed, err = f.paymentSvc.FailedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	balance, err := f.creditSvc.Balance(ctx, ghostAgency)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.CreditBalance)
}
