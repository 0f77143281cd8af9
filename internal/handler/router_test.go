package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gift-approval-api/internal/dto"
	"github.com/noah-isme/gift-approval-api/internal/middleware"
	"github.com/noah-isme/gift-approval-api/internal/models"
)

// headerAuth stands in for the JWT middleware: X-Test-Caps lists the granted
// capabilities on the gift-approval module.
func headerAuth(c *gin.Context) {
	role := c.GetHeader("X-Test-Role")
	if role == "" {
		c.Next()
		return
	}
	var caps []string
	if raw := c.GetHeader("X-Test-Caps"); raw != "" {
		caps = strings.Split(raw, ",")
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID:      "user-" + strings.ToLower(role),
		Role:        role,
		Permissions: map[string][]string{"gift-approval": caps},
	})
	c.Next()
}

func buildGiftRouter(ready map[string]ReadinessCheck) (*gin.Engine, *giftServiceMock, *giftBatchServiceMock) {
	gin.SetMode(gin.TestMode)
	gifts := &giftServiceMock{
		listResp:       []models.GiftRequest{},
		transitionResp: &dto.TransitionResult{GiftID: 1},
	}
	batches := &giftBatchServiceMock{updateResp: &dto.BulkUpdateResult{}, importResp: &dto.ImportResult{}}
	r := gin.New()
	RegisterRoutes(r, "/api/v1", "gift-approval", headerAuth, Handlers{
		Gifts:   NewGiftHandler(gifts),
		Batches: NewGiftBatchHandler(batches),
		Metrics: NewMetricsHandler(nil, ready),
	})
	return r, gifts, batches
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGiftRoutes(t *testing.T) {
	router, gifts, batches := buildGiftRouter(nil)

	t.Run("missing claims", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/gifts", nil)
		resp := perform(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.False(t, gifts.called)
	})

	t.Run("list with view", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/gifts?limit=10", nil)
		req.Header.Set("X-Test-Role", "KAM")
		req.Header.Set("X-Test-Caps", "VIEW")
		resp := perform(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, gifts.called)
	})

	t.Run("transition needs edit", func(t *testing.T) {
		gifts.called = false
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/gifts/1/transitions", strings.NewReader(`{"tab":"pending","action":"approve"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", "MANAGER")
		req.Header.Set("X-Test-Caps", "VIEW")
		resp := perform(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
		assert.Contains(t, resp.Body.String(), `"missingPermission":"EDIT"`)
		assert.False(t, gifts.called)
	})

	t.Run("transition with edit", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/gifts/1/transitions", strings.NewReader(`{"tab":"pending","action":"approve"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", "MANAGER")
		req.Header.Set("X-Test-Caps", "VIEW,EDIT")
		resp := perform(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, int64(1), gifts.lastID)
	})

	t.Run("unknown role", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/gift-batches", nil)
		req.Header.Set("X-Test-Role", "INTERN")
		req.Header.Set("X-Test-Caps", "VIEW")
		resp := perform(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.False(t, batches.called)
	})

	t.Run("import needs only import and add", func(t *testing.T) {
		batches.called = false
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/gift-batches/import", strings.NewReader(`{"rows":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", "KAM")
		req.Header.Set("X-Test-Caps", "IMPORT,ADD")
		resp := perform(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.True(t, batches.called)
	})

	t.Run("reads still need view", func(t *testing.T) {
		batches.called = false
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/gift-batches", nil)
		req.Header.Set("X-Test-Role", "KAM")
		req.Header.Set("X-Test-Caps", "IMPORT,ADD")
		resp := perform(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
		assert.Contains(t, resp.Body.String(), `"missingPermission":"VIEW"`)
		assert.False(t, batches.called)
	})

	t.Run("bulk update", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/gift-batches/update", strings.NewReader(`{"tab":"audit","rows":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", "AUDIT")
		req.Header.Set("X-Test-Caps", "VIEW,EDIT")
		resp := perform(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "audit", batches.lastUpdate.Tab)
	})
}

func TestProbeRoutes(t *testing.T) {
	router, _, _ := buildGiftRouter(map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp := perform(router, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/ready", nil)
	resp = perform(router, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "connection refused")
	assert.NotContains(t, resp.Body.String(), "postgres")

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	resp = perform(router, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
