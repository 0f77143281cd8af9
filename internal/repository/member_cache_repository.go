package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/gift-approval-api/internal/models"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

const memberCachePrefix = "gift-approval:member:"

// MemberCacheRepository stores member lookups in Redis keyed by lower-cased login.
type MemberCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewMemberCacheRepository constructs the cache. A nil client turns every read into a miss.
func NewMemberCacheRepository(client *redis.Client, logger *zap.Logger) *MemberCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberCacheRepository{client: client, logger: logger}
}

func memberKey(login string) string {
	return memberCachePrefix + strings.ToLower(strings.TrimSpace(login))
}

// Get returns the cached member or appErrors.ErrCacheMiss.
func (r *MemberCacheRepository) Get(ctx context.Context, login string) (*models.Member, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := memberKey(login)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var member models.Member
	if err := json.Unmarshal(raw, &member); err != nil {
		return nil, fmt.Errorf("unmarshal cached member %s: %w", key, err)
	}
	return &member, nil
}

// SetMany stores members in one pipeline round trip.
func (r *MemberCacheRepository) SetMany(ctx context.Context, members []models.Member, ttl time.Duration) error {
	if r.client == nil || len(members) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, member := range members {
		payload, err := json.Marshal(member)
		if err != nil {
			return fmt.Errorf("marshal member %s: %w", member.Login, err)
		}
		pipe.Set(ctx, memberKey(member.Login), payload, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline set members: %w", err)
	}
	return nil
}

// Purge removes every cached member.
func (r *MemberCacheRepository) Purge(ctx context.Context) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, memberCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan members: %w", err)
	}
	r.logger.Debug("member cache purged")
	return nil
}
