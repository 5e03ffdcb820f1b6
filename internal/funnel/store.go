package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"funnel-orders/internal/common/database"
	apperrors "funnel-orders/internal/common/errors"
	"funnel-orders/internal/models"
)

const sessionKeyPrefix = "funnel:session:"

// SessionStore persists funnel sessions in Redis so the identifiers captured
// at checkout survive to the upsell steps. Values are opaque JSON blobs; the
// store knows nothing about funnel ordering.
type SessionStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSessionStore(client *database.RedisClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{redis: client, ttl: ttl}
}

// Create starts a new session at the plan-select step.
func (s *SessionStore) Create(ctx context.Context) (*models.FunnelSession, error) {
	session := &models.FunnelSession{
		ID:   uuid.NewString(),
		Step: models.StepPlanSelect,
	}
	if err := s.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.FunnelSession, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+id)
	if err == redis.Nil {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}

	var session models.FunnelSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(fmt.Errorf("corrupt session %s: %w", id, err))
	}
	return &session, nil
}

// Save writes the session back, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, session *models.FunnelSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+session.ID, string(data), s.ttl); err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+id); err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	return nil
}
