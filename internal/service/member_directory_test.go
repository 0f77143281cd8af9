package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gift-approval-api/internal/models"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

type memberStoreStub struct {
	members map[string]models.Member
	finds   int
	listErr error
}

func (s *memberStoreStub) FindByLogin(_ context.Context, login string) (*models.Member, error) {
	s.finds++
	m, ok := s.members[strings.ToLower(login)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (s *memberStoreStub) ListActive(_ context.Context) ([]models.Member, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out, nil
}

type memberCacheStub struct {
	entries map[string]models.Member
	getErr  error
	purged  int
	ttl     time.Duration
}

func (c *memberCacheStub) Get(_ context.Context, login string) (*models.Member, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	m, ok := c.entries[strings.ToLower(login)]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return &m, nil
}

func (c *memberCacheStub) SetMany(_ context.Context, members []models.Member, ttl time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string]models.Member)
	}
	for _, m := range members {
		c.entries[strings.ToLower(m.Login)] = m
	}
	c.ttl = ttl
	return nil
}

func (c *memberCacheStub) Purge(_ context.Context) error {
	c.purged++
	c.entries = nil
	return nil
}

type cacheMetricsStub struct {
	hits, misses int
}

func (m *cacheMetricsStub) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func newMemberStoreStub() *memberStoreStub {
	return &memberStoreStub{members: map[string]models.Member{
		"vip001": {ID: 1, Login: "vip001", MerchantName: "Lucky Star", Currency: "MYR", IsActive: true},
	}}
}

func TestMemberDirectoryReadThrough(t *testing.T) {
	store := newMemberStoreStub()
	cache := &memberCacheStub{}
	metrics := &cacheMetricsStub{}
	dir := NewMemberDirectory(store, cache, metrics, MemberDirectoryConfig{Enabled: true, TTL: time.Minute}, nil)

	member, err := dir.Lookup(context.Background(), " vip001 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), member.ID)
	assert.Equal(t, 1, store.finds)
	assert.Equal(t, time.Minute, cache.ttl)

	_, err = dir.Lookup(context.Background(), "vip001")
	require.NoError(t, err)
	assert.Equal(t, 1, store.finds)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestMemberDirectoryNotFoundAndEmptyLogin(t *testing.T) {
	dir := NewMemberDirectory(newMemberStoreStub(), nil, nil, MemberDirectoryConfig{Enabled: true}, nil)

	_, err := dir.Lookup(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.CodeNotFound, appErrors.KindOf(err))
	assert.Equal(t, "member ghost not found", appErrors.FromError(err).Message)
	assert.Equal(t, "ghost", appErrors.FromError(err).Details["memberLogin"])

	_, err = dir.Lookup(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, appErrors.CodeValidation, appErrors.KindOf(err))
}

func TestMemberDirectoryCacheFailureFallsBackToStore(t *testing.T) {
	store := newMemberStoreStub()
	cache := &memberCacheStub{getErr: errStoreDown}
	dir := NewMemberDirectory(store, cache, nil, MemberDirectoryConfig{Enabled: true}, nil)

	member, err := dir.Lookup(context.Background(), "vip001")
	require.NoError(t, err)
	assert.Equal(t, "Lucky Star", member.MerchantName)
	assert.Equal(t, 1, store.finds)
}

func TestMemberDirectoryRefresh(t *testing.T) {
	store := newMemberStoreStub()
	cache := &memberCacheStub{entries: map[string]models.Member{"stale": {Login: "stale"}}}
	dir := NewMemberDirectory(store, cache, nil, MemberDirectoryConfig{Enabled: true}, nil)

	n, err := dir.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, cache.purged)
	assert.Contains(t, cache.entries, "vip001")
	assert.NotContains(t, cache.entries, "stale")

	store.listErr = errStoreDown
	_, err = dir.Refresh(context.Background())
	require.ErrorIs(t, err, errStoreDown)

	disabled := NewMemberDirectory(store, cache, nil, MemberDirectoryConfig{}, nil)
	n, err = disabled.Refresh(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
