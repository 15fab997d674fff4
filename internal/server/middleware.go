package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/certifast/certifast/internal/agencyctx"
)

const (
	HeaderAgency = "X-Agency-ID"
	HeaderUser   = "X-User-ID"
)

// AgencyRequired resolves the tenant from the X-Agency-ID header and
// stores it in the request context. The optional X-User-ID header
// identifies the acting user for status history attribution.
func (s *Server) AgencyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderAgency))
		if raw == "" {
			AbortWithError(c, ErrAgencyRequired)
			return
		}

		agencyID, err := snowflake.ParseString(raw)
		if err != nil || agencyID == 0 {
			AbortWithError(c, ErrAgencyRequired)
			return
		}

		ctx := agencyctx.WithAgencyID(c.Request.Context(), agencyID)
		if rawUser := strings.TrimSpace(c.GetHeader(HeaderUser)); rawUser != "" {
			if userID, err := snowflake.ParseString(rawUser); err == nil && userID != 0 {
				ctx = agencyctx.WithUserID(ctx, userID)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
