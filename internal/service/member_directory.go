package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gift-approval-api/internal/models"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

type memberStore interface {
	FindByLogin(ctx context.Context, login string) (*models.Member, error)
	ListActive(ctx context.Context) ([]models.Member, error)
}

type memberCache interface {
	Get(ctx context.Context, login string) (*models.Member, error)
	SetMany(ctx context.Context, members []models.Member, ttl time.Duration) error
	Purge(ctx context.Context) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// MemberDirectoryConfig tunes the read-through cache.
type MemberDirectoryConfig struct {
	Enabled bool
	TTL     time.Duration
}

// MemberDirectory resolves member logins through an optional cache in front of
// the members table. Cache failures degrade to store reads.
type MemberDirectory struct {
	store   memberStore
	cache   memberCache
	metrics cacheMetrics
	logger  *zap.Logger
	cfg     MemberDirectoryConfig
}

// NewMemberDirectory constructs the directory. cache and metrics may be nil.
func NewMemberDirectory(store memberStore, cache memberCache, metrics cacheMetrics, cfg MemberDirectoryConfig, logger *zap.Logger) *MemberDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cache == nil {
		cfg.Enabled = false
	}
	return &MemberDirectory{store: store, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Lookup returns the active member with login or a NotFound error.
func (d *MemberDirectory) Lookup(ctx context.Context, login string) (*models.Member, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "memberLogin is required")
	}

	if d.cfg.Enabled {
		member, err := d.cache.Get(ctx, login)
		if err == nil {
			d.recordCache(true)
			return member, nil
		}
		d.recordCache(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			d.logger.Warn("member cache read failed", zap.String("member_login", login), zap.Error(err))
		}
	}

	member, err := d.store.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("member %s not found", login)),
				map[string]interface{}{"memberLogin": login},
			)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve member")
	}

	if d.cfg.Enabled {
		if err := d.cache.SetMany(ctx, []models.Member{*member}, d.cfg.TTL); err != nil {
			d.logger.Warn("member cache write failed", zap.String("member_login", login), zap.Error(err))
		}
	}
	return member, nil
}

// Refresh reloads every active member into the cache and returns the count.
func (d *MemberDirectory) Refresh(ctx context.Context) (int, error) {
	if !d.cfg.Enabled {
		return 0, nil
	}
	members, err := d.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	if err := d.cache.Purge(ctx); err != nil {
		return 0, err
	}
	if err := d.cache.SetMany(ctx, members, d.cfg.TTL); err != nil {
		return 0, err
	}
	d.logger.Info("member cache refreshed", zap.Int("members", len(members)))
	return len(members), nil
}

// RunRefresher refreshes the cache every interval until ctx ends.
func (d *MemberDirectory) RunRefresher(ctx context.Context, interval time.Duration) {
	if !d.cfg.Enabled {
		return
	}
	if interval <= 0 {
		interval = d.cfg.TTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Refresh(ctx); err != nil {
				d.logger.Warn("member cache refresh failed", zap.Error(err))
			}
		}
	}
}

func (d *MemberDirectory) recordCache(hit bool) {
	if d.metrics != nil {
		d.metrics.RecordCacheOperation(hit)
	}
}
