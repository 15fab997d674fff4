package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/certifast/certifast/internal/agencyctx"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	orderdomain "github.com/certifast/certifast/internal/order/domain"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
)

type fakeOrderService struct {
	transitionErr  error
	lastTransition orderdomain.TransitionRequest
}

func (f *fakeOrderService) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (orderdomain.Order, error) {
	_ = ctx
	_ = req
	return orderdomain.Order{}, nil
}

func (f *fakeOrderService) GetByID(ctx context.Context, req orderdomain.GetOrderRequest) (orderdomain.OrderRow, error) {
	_ = ctx
	_ = req
	return orderdomain.OrderRow{}, orderdomain.ErrNotFound
}

func (f *fakeOrderService) List(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.OrderRow, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeOrderService) Calendar(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.OrderRow, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeOrderService) Transition(ctx context.Context, req orderdomain.TransitionRequest) (orderdomain.Order, error) {
	_ = ctx
	f.lastTransition = req
	if f.transitionErr != nil {
		return orderdomain.Order{}, f.transitionErr
	}
	return orderdomain.Order{Status: req.NewStatus}, nil
}

func (f *fakeOrderService) History(ctx context.Context, req orderdomain.GetOrderRequest) ([]orderdomain.StatusHistory, error) {
	_ = ctx
	_ = req
	return nil, nil
}

type fakeCreditService struct {
	deductErr error
	balance   creditdomain.Balance
}

func (f *fakeCreditService) Deduct(ctx context.Context, agencyID snowflake.ID, req creditdomain.DeductRequest) (creditdomain.Balance, error) {
	_ = ctx
	_ = agencyID
	_ = req
	if f.deductErr != nil {
		return creditdomain.Balance{}, f.deductErr
	}
	return f.balance, nil
}

func (f *fakeCreditService) Add(ctx context.Context, agencyID snowflake.ID, req creditdomain.AddRequest) (creditdomain.Balance, error) {
	_ = ctx
	_ = agencyID
	_ = req
	return f.balance, nil
}

func (f *fakeCreditService) Balance(ctx context.Context, agencyID snowflake.ID) (creditdomain.Balance, error) {
	_ = ctx
	_ = agencyID
	return f.balance, nil
}

func (f *fakeCreditService) Transactions(ctx context.Context, agencyID snowflake.ID, req creditdomain.ListTransactionsRequest) ([]creditdomain.Transaction, error) {
	_ = ctx
	_ = agencyID
	_ = req
	return nil, nil
}

func (f *fakeCreditService) Transaction(ctx context.Context, agencyID snowflake.ID, id string) (creditdomain.Transaction, error) {
	_ = ctx
	_ = agencyID
	_ = id
	return creditdomain.Transaction{}, creditdomain.ErrNotFound
}

func (f *fakeCreditService) Reconcile(ctx context.Context, agencyID snowflake.ID) (creditdomain.ReconcileReport, error) {
	_ = ctx
	_ = agencyID
	return creditdomain.ReconcileReport{}, nil
}

type fakeWebhookService struct {
	err      error
	provider string
}

func (f *fakeWebhookService) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	_ = ctx
	_ = payload
	_ = headers
	f.provider = provider
	return f.err
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv.engine = router
	srv.registerAPIRoutes()
	srv.registerWebhookRoutes()
	return router
}

func withAgencyHeader(req *http.Request) *http.Request {
	req.Header.Set(HeaderAgency, snowflake.ID(7).String())
	return req
}

func TestAgencyHeaderRequired(t *testing.T) {
	srv := &Server{orderSvc: &fakeOrderService{}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), "unauthorized")
}

func TestAgencyHeaderResolvesContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{}
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	var resolved snowflake.ID
	router.GET("/probe", srv.AgencyRequired(), func(c *gin.Context) {
		resolved, _ = agencyctx.AgencyIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderAgency, snowflake.ID(42).String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, snowflake.ID(42), resolved)
}

func TestTransitionConflictMapsTo409(t *testing.T) {
	orderSvc := &fakeOrderService{transitionErr: orderdomain.ErrInvalidTransition}
	srv := &Server{orderSvc: orderSvc}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"new_status":"completed"}`)
	req := withAgencyHeader(httptest.NewRequest(http.MethodPost, "/v1/orders/123/transition", body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "123", orderSvc.lastTransition.OrderID)
}

func TestUnknownStatusMapsTo400(t *testing.T) {
	orderSvc := &fakeOrderService{transitionErr: orderdomain.ErrInvalidStatus}
	srv := &Server{orderSvc: orderSvc}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"new_status":"done"}`)
	req := withAgencyHeader(httptest.NewRequest(http.MethodPost, "/v1/orders/123/transition", body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_status")
}

func TestOrderNotFoundMapsTo404(t *testing.T) {
	srv := &Server{orderSvc: &fakeOrderService{}}
	router := newTestRouter(srv)

	req := withAgencyHeader(httptest.NewRequest(http.MethodGet, "/v1/orders/999", nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestInsufficientCreditsMapsTo402(t *testing.T) {
	srv := &Server{creditSvc: &fakeCreditService{deductErr: creditdomain.ErrInsufficientCredits}}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"amount":5,"description":"energy certificate"}`)
	req := withAgencyHeader(httptest.NewRequest(http.MethodPost, "/v1/credits/deduct", body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusPaymentRequired, resp.Code)
	require.Contains(t, resp.Body.String(), "insufficient_credits")
}

func TestDuplicateReferenceMapsTo409(t *testing.T) {
	srv := &Server{creditSvc: &fakeCreditService{deductErr: creditdomain.ErrDuplicateReference}}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"amount":5,"reference_id":"ord_1"}`)
	req := withAgencyHeader(httptest.NewRequest(http.MethodPost, "/v1/credits/deduct", body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestWebhookAlreadyProcessedReturns200(t *testing.T) {
	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrEventAlreadyProcessed}
	srv := &Server{webhookSvc: webhookSvc}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"id":"evt_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", body)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "stripe", webhookSvc.provider)
}

func TestWebhookBadSignatureReturns400(t *testing.T) {
	srv := &Server{webhookSvc: &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"id":"evt_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", body)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_signature")
}

func TestWebhookUnknownProviderReturns404(t *testing.T) {
	srv := &Server{webhookSvc: &fakeWebhookService{err: paymentdomain.ErrProviderNotFound}}
	router := newTestRouter(srv)

	body := bytes.NewBufferString(`{"id":"evt_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/paypal", body)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}
