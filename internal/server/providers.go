package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	providerdomain "github.com/certifast/certifast/internal/provider/domain"
)

func (s *Server) CreateProvider(c *gin.Context) {
	var req providerdomain.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.providerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProviders(c *gin.Context) {
	resp, err := s.providerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProviderByID(c *gin.Context) {
	resp, err := s.providerSvc.GetByID(c.Request.Context(), providerdomain.GetProviderRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProviderAvailability(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.providerSvc.Availability(c.Request.Context(), providerdomain.AvailabilityRequest{
		ProviderID: strings.TrimSpace(c.Param("id")),
		Date:       date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isProviderValidationError(err error) bool {
	switch err {
	case providerdomain.ErrInvalidAgency,
		providerdomain.ErrInvalidID,
		providerdomain.ErrInvalidName,
		providerdomain.ErrInvalidDate,
		providerdomain.ErrInvalidHours:
		return true
	default:
		return false
	}
}
