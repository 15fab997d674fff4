package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/certifast/certifast/internal/agency"
	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/config"
	"github.com/certifast/certifast/internal/credit"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	"github.com/certifast/certifast/internal/observability"
	obslogger "github.com/certifast/certifast/internal/observability/logger"
	obsmetrics "github.com/certifast/certifast/internal/observability/metrics"
	obstracing "github.com/certifast/certifast/internal/observability/tracing"
	"github.com/certifast/certifast/internal/order"
	orderdomain "github.com/certifast/certifast/internal/order/domain"
	"github.com/certifast/certifast/internal/payment"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
	paymentservice "github.com/certifast/certifast/internal/payment/service"
	"github.com/certifast/certifast/internal/provider"
	providerdomain "github.com/certifast/certifast/internal/provider/domain"
	"github.com/certifast/certifast/internal/providers"
	"github.com/certifast/certifast/internal/providers/pdf"
	"github.com/certifast/certifast/internal/ratelimit"
	"github.com/certifast/certifast/internal/subscription"
	subscriptiondomain "github.com/certifast/certifast/internal/subscription/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	agency.Module,
	provider.Module,
	order.Module,
	credit.Module,
	subscription.Module,
	payment.Module,
	providers.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:             log,
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	agencySvc       agencydomain.Service
	providerSvc     providerdomain.Service
	orderSvc        orderdomain.Service
	creditSvc       creditdomain.Service
	subscriptionSvc subscriptiondomain.Service
	webhookSvc      paymentdomain.Service
	paymentSvc      *paymentservice.Service
	pdfSvc          pdf.Provider
	plans           *config.PlanCatalogHolder
	webhookLimiter  *ratelimit.WebhookIngestLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	AgencySvc       agencydomain.Service
	ProviderSvc     providerdomain.Service
	OrderSvc        orderdomain.Service
	CreditSvc       creditdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	WebhookSvc      paymentdomain.Service
	PaymentSvc      *paymentservice.Service
	PDFSvc          pdf.Provider
	Plans           *config.PlanCatalogHolder
	WebhookLimiter  *ratelimit.WebhookIngestLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics             `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		agencySvc:       p.AgencySvc,
		providerSvc:     p.ProviderSvc,
		orderSvc:        p.OrderSvc,
		creditSvc:       p.CreditSvc,
		subscriptionSvc: p.SubscriptionSvc,
		webhookSvc:      p.WebhookSvc,
		paymentSvc:      p.PaymentSvc,
		pdfSvc:          p.PDFSvc,
		plans:           p.Plans,
		webhookLimiter:  p.WebhookLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/plans", s.ListPlans)
	v1.POST("/agencies", s.CreateAgency)

	api := v1.Group("", s.AgencyRequired())

	api.GET("/agency", s.GetAgency)
	api.POST("/customers", s.CreateCustomer)
	api.POST("/properties", s.CreateProperty)

	// -------- Providers --------
	api.GET("/providers", s.ListProviders)
	api.POST("/providers", s.CreateProvider)
	api.GET("/providers/:id", s.GetProviderByID)
	api.GET("/providers/:id/availability", s.GetProviderAvailability)

	// -------- Orders --------
	api.GET("/orders", s.ListOrders)
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/calendar", s.GetOrderCalendar)
	api.GET("/orders/:id", s.GetOrderByID)
	api.POST("/orders/:id/transition", s.TransitionOrder)
	api.GET("/orders/:id/history", s.GetOrderHistory)

	// -------- Credits --------
	api.GET("/credits/balance", s.GetCreditBalance)
	api.POST("/credits/deduct", s.DeductCredits)
	api.GET("/credits/transactions", s.ListCreditTransactions)
	api.GET("/credits/transactions/:id/receipt", s.GetCreditReceipt)
	api.GET("/credits/reconcile", s.ReconcileCredits)

	// -------- Subscription --------
	api.GET("/subscription", s.GetSubscription)
	api.GET("/subscription/history", s.GetSubscriptionHistory)

	// -------- Payment events --------
	api.GET("/payments/failed-events", s.ListFailedPaymentEvents)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.WebhookIngestRateLimit(), s.HandlePaymentWebhook)
}
