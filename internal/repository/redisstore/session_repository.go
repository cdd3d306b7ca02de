package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/contract"
)

type SessionRepositoryImpl struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.ILogger
}

func NewSessionRepository(client *redis.Client, ttl time.Duration, log logger.ILogger) contract.SessionRepository {
	return &SessionRepositoryImpl{client: client, ttl: ttl, log: log}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, userID string) (*entity.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session entity.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// a corrupt session is unrecoverable, drop it and start over
		r.log.Error("session", "corrupt session dropped", map[string]interface{}{
			"userId": userID, "error": err.Error(),
		})
		if delErr := r.client.Del(ctx, sessionKey(userID)).Err(); delErr != nil {
			return nil, fmt.Errorf("redis del corrupt session: %w", delErr)
		}
		return nil, nil
	}

	// sliding expiry
	if err := r.client.Expire(ctx, sessionKey(userID), r.ttl).Err(); err != nil {
		r.log.Warn("session", "ttl refresh failed", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	return &session, nil
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.SetEx(ctx, sessionKey(session.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, userID string, patch entity.SessionPatch) (*entity.Session, error) {
	session, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no session for user %s", userID)
	}
	patch.Apply(session)
	if err := r.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
