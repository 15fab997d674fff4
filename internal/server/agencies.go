package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	agencydomain "github.com/certifast/certifast/internal/agency/domain"
)

func (s *Server) CreateAgency(c *gin.Context) {
	var req agencydomain.CreateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.Create(c.Request.Context(), agencydomain.CreateAgencyRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		PlanTier: strings.TrimSpace(req.PlanTier),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAgency(c *gin.Context) {
	resp, err := s.agencySvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req agencydomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.CreateCustomer(c.Request.Context(), agencydomain.CreateCustomerRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateProperty(c *gin.Context) {
	var req agencydomain.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.CreateProperty(c.Request.Context(), agencydomain.CreatePropertyRequest{
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		PropertyType: strings.TrimSpace(req.PropertyType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.plans.Get().Plans})
}

func isAgencyValidationError(err error) bool {
	switch err {
	case agencydomain.ErrInvalidAgency,
		agencydomain.ErrInvalidName,
		agencydomain.ErrInvalidEmail:
		return true
	default:
		return false
	}
}
