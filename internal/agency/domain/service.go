package domain

import (
	"context"
	"errors"
)

type CreateAgencyRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PlanTier string `json:"plan_tier"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreatePropertyRequest struct {
	Address      string `json:"address"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	PropertyType string `json:"property_type"`
}

type Service interface {
	Create(context.Context, CreateAgencyRequest) (Agency, error)
	Get(context.Context) (Agency, error)
	CreateCustomer(context.Context, CreateCustomerRequest) (Customer, error)
	CreateProperty(context.Context, CreatePropertyRequest) (Property, error)
}

var (
	ErrInvalidAgency = errors.New("invalid_agency")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrNotFound      = errors.New("not_found")
)
