package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
)

// WebhookIngestRateLimit throttles deliveries per provider and source
// address, and holds a short lock per event id so concurrent duplicate
// deliveries do not race the processor.
func (s *Server) WebhookIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.webhookLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		provider := strings.TrimSpace(c.Param("provider"))
		endpoint := strings.TrimSpace(c.FullPath())

		result, err := s.webhookLimiter.Allow(ctx, provider, c.ClientIP())
		if err != nil {
			s.log.Warn("webhook rate limit check failed", zap.Error(err))
		}
		if result != nil && !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(endpoint)
			}
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrRateLimited)
			return
		}

		eventID, err := readWebhookEventID(c)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		if eventID != "" {
			token, locked, err := s.webhookLimiter.LockEvent(ctx, provider, eventID)
			if err != nil {
				s.log.Warn("webhook event lock failed", zap.Error(err))
			}
			if !locked {
				// A duplicate delivery is in flight; the provider retries.
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
				c.Abort()
				return
			}
			defer func() {
				if err := s.webhookLimiter.UnlockEvent(ctx, provider, eventID, token); err != nil {
					s.log.Warn("webhook event unlock failed", zap.Error(err))
				}
			}()
		}

		c.Next()
	}
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListFailedPaymentEvents exposes the dead-letter queue: stored events
// whose processing failed and that await redelivery.
func (s *Server) ListFailedPaymentEvents(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.FailedEvents(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func readWebhookEventID(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.ID), nil
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidProvider,
		paymentdomain.ErrInvalidConfig,
		paymentdomain.ErrInvalidPayload,
		paymentdomain.ErrInvalidEvent,
		paymentdomain.ErrInvalidSignature,
		paymentdomain.ErrInvalidAgency:
		return true
	default:
		return false
	}
}
