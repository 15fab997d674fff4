package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/config"
	"github.com/certifast/certifast/internal/subscription/domain"
	"github.com/certifast/certifast/internal/subscription/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSubscriptions(t *testing.T) (domain.Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&agencydomain.Agency{},
		&domain.Subscription{},
		&domain.History{},
	))

	node, err := snowflake.NewNode(15)
	require.NoError(t, err)

	agencyID := node.Generate()
	require.NoError(t, db.Create(&agencydomain.Agency{
		ID:    agencyID,
		Name:  "Imovia",
		Email: "ops@imovia.example",
	}).Error)

	plans, err := config.NewPlanCatalogHolder(zap.NewNop())
	require.NoError(t, err)
	plans.StoreForTest(config.DefaultPlanCatalog())

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Plans: plans,
	})
	return svc, db, agencyID
}

func agencyRow(t *testing.T, db *gorm.DB, agencyID snowflake.ID) agencydomain.Agency {
	t.Helper()
	var agency agencydomain.Agency
	require.NoError(t, db.Where("id = ?", agencyID).First(&agency).Error)
	return agency
}

func TestUpsertCreatesSubscriptionAndStampsPlan(t *testing.T) {
	svc, db, agencyID := setupSubscriptions(t)
	ctx := context.Background()

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Upsert(ctx, domain.UpsertRequest{
		AgencyID:               agencyID,
		ProviderSubscriptionID: "sub_abc",
		Tier:                   "professional",
		Status:                 domain.StatusActive,
		PeriodEnd:              &periodEnd,
		EventType:              "customer.subscription.created",
	})
	require.NoError(t, err)
	assert.Equal(t, "professional", sub.Tier)

	agency := agencyRow(t, db, agencyID)
	assert.Equal(t, "professional", agency.PlanTier)
	assert.Equal(t, int64(50), agency.IncludedCredits)

	history, err := svc.History(ctx, agencyID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "customer.subscription.created", history[0].EventType)
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	svc, db, agencyID := setupSubscriptions(t)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		AgencyID:  agencyID,
		Tier:      "starter",
		Status:    domain.StatusTrialing,
		EventType: "customer.subscription.created",
	})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		AgencyID:  agencyID,
		Tier:      "enterprise",
		Status:    domain.StatusActive,
		EventType: "customer.subscription.updated",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "enterprise", second.Tier)

	agency := agencyRow(t, db, agencyID)
	assert.Equal(t, int64(200), agency.IncludedCredits)

	var count int64
	require.NoError(t, db.Model(&domain.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertRejectsUnknownTier(t *testing.T) {
	svc, _, agencyID := setupSubscriptions(t)

	_, err := svc.Upsert(context.Background(), domain.UpsertRequest{
		AgencyID: agencyID,
		Tier:     "platinum",
		Status:   domain.StatusActive,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}

func TestRenewResetsAllotmentAndPeriod(t *testing.T) {
	svc, db, agencyID := setupSubscriptions(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		AgencyID:  agencyID,
		Tier:      "starter",
		Status:    domain.StatusPastDue,
		EventType: "customer.subscription.updated",
	})
	require.NoError(t, err)

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Renew(ctx, domain.RenewRequest{
		AgencyID:  agencyID,
		PeriodEnd: &periodEnd,
		EventType: "invoice.paid",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd.UTC())

	agency := agencyRow(t, db, agencyID)
	assert.Equal(t, int64(10), agency.IncludedCredits)
}

func TestCancelZeroesIncludedCreditsOnly(t *testing.T) {
	svc, db, agencyID := setupSubscriptions(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertRequest{
		AgencyID:  agencyID,
		Tier:      "professional",
		Status:    domain.StatusActive,
		EventType: "customer.subscription.created",
	})
	require.NoError(t, err)

	// Purchased credits sit on the balance and must survive.
	require.NoError(t, db.Exec(`UPDATE agencies SET credit_balance = 30 WHERE id = ?`, agencyID).Error)

	sub, err := svc.Cancel(ctx, domain.CancelRequest{
		AgencyID:  agencyID,
		EventType: "customer.subscription.deleted",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, sub.Status)

	agency := agencyRow(t, db, agencyID)
	assert.Equal(t, int64(0), agency.IncludedCredits)
	assert.Equal(t, int64(30), agency.CreditBalance)

	history, err := svc.History(ctx, agencyID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusCanceled, history[1].Status)
}

func TestRenewWithoutSubscription(t *testing.T) {
	svc, _, agencyID := setupSubscriptions(t)

	_, err := svc.Renew(context.Background(), domain.RenewRequest{AgencyID: agencyID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
