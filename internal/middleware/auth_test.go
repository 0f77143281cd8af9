package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
	"github.com/noah-isme/gift-approval-api/pkg/logger"
)

type verifierStub struct {
	claims *models.JWTClaims
	token  string
}

func (v *verifierStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	if v.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func protectedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": c.GetString(logger.ActorContextKey)})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func managerClaims(caps ...string) *models.JWTClaims {
	return &models.JWTClaims{
		UserID:      "mgr-1",
		Role:        string(workflow.RoleManager),
		Permissions: map[string][]string{"gift-approval": caps},
	}
}

func TestJWTMiddleware(t *testing.T) {
	verifier := &verifierStub{claims: managerClaims("VIEW")}
	r := protectedRouter(JWT(verifier))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Basic abc").Code)

	w := get(r, "Bearer  token-1 ")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-1", verifier.token)
	assert.Contains(t, w.Body.String(), `"actor":"mgr-1"`)

	verifier.claims = nil
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer expired").Code)
}

func TestRequireActorRejectsMalformedIdentity(t *testing.T) {
	claims := &models.JWTClaims{UserID: "x", Role: "JANITOR", Permissions: map[string][]string{}}
	r := protectedRouter(JWT(&verifierStub{claims: claims}), RequireActor())

	w := get(r, "Bearer t")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.CodeValidation)

	r = protectedRouter(RequireActor())
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
}

func TestRequireCapability(t *testing.T) {
	verifier := &verifierStub{claims: managerClaims("VIEW")}
	r := protectedRouter(JWT(verifier), RequireActor(), RequireCapability("gift-approval", workflow.CapView, workflow.CapEdit))

	w := get(r, "Bearer t")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"missingPermission":"EDIT"`)

	verifier.claims = managerClaims("VIEW", "EDIT")
	assert.Equal(t, http.StatusOK, get(r, "Bearer t").Code)
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.path = path
	o.status = status
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/gifts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req, _ := http.NewRequest(http.MethodGet, "/gifts/12", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/gifts/:id", observer.path)
	assert.Equal(t, http.StatusNoContent, observer.status)

	req, _ = http.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "unmatched", observer.path)
	assert.Equal(t, http.StatusNotFound, observer.status)
}
