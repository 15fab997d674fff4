package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifast/certifast/internal/agencyctx"
	subscriptiondomain "github.com/certifast/certifast/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	resp, err := s.subscriptionSvc.Get(c.Request.Context(), agencyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionHistory(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	resp, err := s.subscriptionSvc.History(c.Request.Context(), agencyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSubscriptionValidationError(err error) bool {
	switch err {
	case subscriptiondomain.ErrInvalidAgency,
		subscriptiondomain.ErrInvalidTier,
		subscriptiondomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}
