package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Plan describes a subscription tier and its monthly credit allotment.
type Plan struct {
	Tier           string `mapstructure:"tier"`
	Name           string `mapstructure:"name"`
	MonthlyCredits int64  `mapstructure:"monthlyCredits"`
	PriceCents     int64  `mapstructure:"priceCents"`
	Currency       string `mapstructure:"currency"`
}

// PlanCatalog is the set of purchasable tiers.
type PlanCatalog struct {
	Plans []Plan `mapstructure:"plans"`
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Plans: []Plan{
			{Tier: "starter", Name: "Starter", MonthlyCredits: 10, PriceCents: 4900, Currency: "EUR"},
			{Tier: "professional", Name: "Professional", MonthlyCredits: 50, PriceCents: 14900, Currency: "EUR"},
			{Tier: "enterprise", Name: "Enterprise", MonthlyCredits: 200, PriceCents: 39900, Currency: "EUR"},
		},
	}
}

// FindTier returns the plan for a tier, case-insensitively.
func (c PlanCatalog) FindTier(tier string) (Plan, bool) {
	tier = strings.ToLower(strings.TrimSpace(tier))
	for _, plan := range c.Plans {
		if strings.ToLower(plan.Tier) == tier {
			return plan, true
		}
	}
	return Plan{}, false
}

// PlanCatalogHolder exposes the current catalog with hot reload.
type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

func NewPlanCatalogHolder(log *zap.Logger) (*PlanCatalogHolder, error) {
	log = log.Named("plan.catalog")
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/certifast/config") // Volume-mounted config
	v.AddConfigPath("/etc/certifast")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("CERTIFAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultPlanCatalog()
		v.SetDefault("catalog.plans", defaults.Plans)
	}

	var catalog PlanCatalog
	if err := v.UnmarshalKey("catalog", &catalog); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(catalog); err != nil {
		return nil, err
	}

	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Error("plan catalog reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Warn("plan catalog change ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan catalog reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

// StoreForTest replaces the catalog without touching the filesystem.
func (h *PlanCatalogHolder) StoreForTest(catalog PlanCatalog) {
	h.current.Store(catalog)
}

func validatePlanCatalog(catalog PlanCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("catalog.plans cannot be empty")
	}
	for _, plan := range catalog.Plans {
		if strings.TrimSpace(plan.Tier) == "" {
			return errors.New("catalog plan tier cannot be empty")
		}
		if plan.MonthlyCredits < 0 {
			return errors.New("catalog plan monthlyCredits cannot be negative")
		}
	}
	return nil
}
