package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "certifast:webhook:event:"

// Release only deletes the key when the caller still owns it, so an
// expired claim cannot release a later delivery's lock.
const releaseEventScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// EventLock claims the delivery of a single provider event. The claim
// expires after ttl so a crashed worker never blocks redelivery.
type EventLock struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

func NewEventLock(client *redis.Client, ttl time.Duration) *EventLock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultEventLockTTL
	}
	return &EventLock{
		client:  client,
		release: redis.NewScript(releaseEventScript),
		ttl:     ttl,
	}
}

func eventKey(provider, eventID string) string {
	return eventKeyPrefix + provider + ":" + eventID
}

// Claim attempts to take the delivery lock for one provider event and
// returns the owner token on success.
func (l *EventLock) Claim(ctx context.Context, provider, eventID string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("event lock client not configured")
	}
	if provider == "" || eventID == "" {
		return "", false, errors.New("event lock needs provider and event id")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, eventKey(provider, eventID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the claim if token still owns it. Releasing an expired
// or foreign claim is a no-op.
func (l *EventLock) Release(ctx context.Context, provider, eventID, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{eventKey(provider, eventID)}, token).Err()
}
