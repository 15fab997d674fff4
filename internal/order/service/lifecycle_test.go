package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/agencyctx"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/order/domain"
	"github.com/certifast/certifast/internal/order/repository"
	providerdomain "github.com/certifast/certifast/internal/provider/domain"
	providerrepo "github.com/certifast/certifast/internal/provider/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	svc        domain.Service
	clock      *clock.FakeClock
	node       *snowflake.Node
	agencyID   snowflake.ID
	customerID snowflake.ID
	propertyID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Order{},
		&domain.StatusHistory{},
		&providerdomain.Provider{},
		&agencydomain.Customer{},
		&agencydomain.Property{},
	))

	node, err := snowflake.NewNode(11)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         repository.Provide(),
		ProviderRepo: providerrepo.Provide(),
	})

	f := &fixture{
		db:         db,
		svc:        svc,
		clock:      fake,
		node:       node,
		agencyID:   node.Generate(),
		customerID: node.Generate(),
		propertyID: node.Generate(),
	}

	require.NoError(t, db.Create(&agencydomain.Customer{
		ID:       f.customerID,
		AgencyID: f.agencyID,
		Name:     "Maria Silva",
		Email:    "maria@example.com",
	}).Error)
	require.NoError(t, db.Create(&agencydomain.Property{
		ID:       f.propertyID,
		AgencyID: f.agencyID,
		Address:  "Rua Augusta 100",
		City:     "Lisboa",
	}).Error)

	return f
}

func (f *fixture) ctx() context.Context {
	return agencyctx.WithAgencyID(context.Background(), f.agencyID)
}

func (f *fixture) createOrder(t *testing.T, mutate func(*domain.CreateOrderRequest)) domain.Order {
	t.Helper()

	req := domain.CreateOrderRequest{
		PropertyID:  f.propertyID.String(),
		CustomerID:  f.customerID.String(),
		ServiceType: "energy_certificate",
	}
	if mutate != nil {
		mutate(&req)
	}
	order, err := f.svc.Create(f.ctx(), req)
	require.NoError(t, err)
	return order
}

func TestCreateStartsPendingWithHistoryRow(t *testing.T) {
	f := newFixture(t)

	order := f.createOrder(t, nil)
	assert.Equal(t, domain.StatusPending, order.Status)

	history, err := f.svc.History(f.ctx(), domain.GetOrderRequest{ID: order.ID.String()})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].PreviousStatus)
	assert.Equal(t, domain.StatusPending, history[0].NewStatus)
}

func TestCreateWithProviderStartsAssigned(t *testing.T) {
	f := newFixture(t)
	providerID := f.node.Generate()
	require.NoError(t, f.db.Create(&providerdomain.Provider{
		ID:       providerID,
		AgencyID: f.agencyID,
		Name:     "Joao Santos",
		Active:   true,
	}).Error)

	order := f.createOrder(t, func(req *domain.CreateOrderRequest) {
		req.ProviderID = providerID.String()
	})
	assert.Equal(t, domain.StatusAssigned, order.Status)
	assert.Equal(t, providerID, order.ProviderID)
}

func TestTransitionFullLifecycle(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	for _, status := range []string{
		domain.StatusAssigned,
		domain.StatusScheduled,
		domain.StatusInProgress,
		domain.StatusCompleted,
		domain.StatusDelivered,
	} {
		updated, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
			OrderID:   order.ID.String(),
			NewStatus: status,
		})
		require.NoError(t, err, status)
		assert.Equal(t, status, updated.Status)
	}

	history, err := f.svc.History(f.ctx(), domain.GetOrderRequest{ID: order.ID.String()})
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, domain.StatusDelivered, history[5].NewStatus)
	assert.Equal(t, domain.StatusCompleted, history[5].PreviousStatus)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusCompleted,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// A failed transition leaves no history row behind.
	history, err := f.svc.History(f.ctx(), domain.GetOrderRequest{ID: order.ID.String()})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCancellableFromAnyNonTerminalStatus(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	for _, status := range []string{
		domain.StatusAssigned,
		domain.StatusScheduled,
		domain.StatusInProgress,
		domain.StatusCompleted,
	} {
		_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{OrderID: order.ID.String(), NewStatus: status})
		require.NoError(t, err)
	}

	updated, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: "done",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusCancelled,
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusAssigned,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInProgressAndProcessingInterchange(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	for _, status := range []string{domain.StatusAssigned, domain.StatusScheduled, domain.StatusProcessing} {
		_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{OrderID: order.ID.String(), NewStatus: status})
		require.NoError(t, err)
	}

	updated, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	updated, err = f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
}

func TestCompletedDateStampedOnCompletion(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	for _, status := range []string{domain.StatusAssigned, domain.StatusScheduled, domain.StatusInProgress} {
		_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{OrderID: order.ID.String(), NewStatus: status})
		require.NoError(t, err)
	}

	f.clock.Advance(2 * time.Hour)
	updated, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedDate)
	assert.Equal(t, f.clock.Now(), updated.CompletedDate.UTC())
}

func TestSelfAssignmentOnAccept(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	userID := f.node.Generate()
	providerID := f.node.Generate()
	require.NoError(t, f.db.Create(&providerdomain.Provider{
		ID:       providerID,
		AgencyID: f.agencyID,
		UserID:   userID,
		Name:     "Joao Santos",
		Active:   true,
	}).Error)

	ctx := agencyctx.WithUserID(f.ctx(), userID)
	updated, err := f.svc.Transition(ctx, domain.TransitionRequest{
		OrderID:   order.ID.String(),
		NewStatus: domain.StatusAssigned,
	})
	require.NoError(t, err)
	assert.Equal(t, providerID, updated.ProviderID)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transition(f.ctx(), domain.TransitionRequest{
		OrderID:   f.node.Generate().String(),
		NewStatus: domain.StatusAssigned,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryScopedToAgency(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, nil)

	otherCtx := agencyctx.WithAgencyID(context.Background(), f.node.Generate())
	_, err := f.svc.History(otherCtx, domain.GetOrderRequest{ID: order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
