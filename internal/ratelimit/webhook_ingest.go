package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/certifast/certifast/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyWebhookProvider = "certifast:webhook:ingest:%s:%s"

	defaultWebhookRate  = 10.0
	defaultWebhookBurst = 30
	defaultEventLockTTL = 30 * time.Second
)

// WebhookIngestLimiter throttles webhook deliveries per provider and
// source, and serializes concurrent deliveries of the same event.
// Disabled (nil) when Redis is not configured.
type WebhookIngestLimiter struct {
	bucket *TokenBucket
	lock   *EventLock
	rate   float64
	burst  int
}

func NewWebhookIngestLimiter(cfg config.Config) *WebhookIngestLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &WebhookIngestLimiter{
		bucket: NewTokenBucket(client),
		lock:   NewEventLock(client, defaultEventLockTTL),
		rate:   defaultWebhookRate,
		burst:  defaultWebhookBurst,
	}
}

// Allow reports whether a delivery from source may proceed. Redis
// errors fail open: a broken limiter must not drop payment events.
func (l *WebhookIngestLimiter) Allow(ctx context.Context, provider, source string) (*Result, error) {
	if l == nil || l.bucket == nil {
		return &Result{Allowed: true}, nil
	}

	key := fmt.Sprintf(keyWebhookProvider, provider, source)
	result, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		return &Result{Allowed: true}, err
	}
	return result, nil
}

// LockEvent claims the delivery of one provider event so duplicate
// concurrent deliveries wait for the provider's retry instead of
// racing each other.
func (l *WebhookIngestLimiter) LockEvent(ctx context.Context, provider, eventID string) (string, bool, error) {
	if l == nil || l.lock == nil {
		return "", true, nil
	}
	return l.lock.Claim(ctx, provider, eventID)
}

func (l *WebhookIngestLimiter) UnlockEvent(ctx context.Context, provider, eventID, token string) error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Release(ctx, provider, eventID, token)
}
