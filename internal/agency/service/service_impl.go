package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/agencyctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("agency.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAgencyRequest) (domain.Agency, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Agency{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Agency{}, domain.ErrInvalidEmail
	}

	tier := strings.ToLower(strings.TrimSpace(req.PlanTier))
	if tier == "" {
		tier = "starter"
	}

	now := time.Now().UTC()
	agency := domain.Agency{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		PlanTier:  tier,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &agency); err != nil {
		return domain.Agency{}, err
	}

	return agency, nil
}

func (s *Service) Get(ctx context.Context) (domain.Agency, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Agency{}, domain.ErrInvalidAgency
	}

	item, err := s.repo.FindByID(ctx, s.db, agencyID)
	if err != nil {
		return domain.Agency{}, err
	}
	if item == nil {
		return domain.Agency{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Customer{}, domain.ErrInvalidAgency
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		AgencyID:  agencyID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertCustomer(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) CreateProperty(ctx context.Context, req domain.CreatePropertyRequest) (domain.Property, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Property{}, domain.ErrInvalidAgency
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.Property{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	property := domain.Property{
		ID:           s.genID.Generate(),
		AgencyID:     agencyID,
		Address:      address,
		City:         strings.TrimSpace(req.City),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		PropertyType: strings.TrimSpace(req.PropertyType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.InsertProperty(ctx, s.db, &property); err != nil {
		return domain.Property{}, err
	}

	return property, nil
}
