package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/internal/service"
	"github.com/crossmark-io/crossmark-api/pkg/config"
)

func newProtectedRouter(authSvc *service.AuthService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", JWT(authSvc))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("ping", func(c *gin.Context) {
		claims, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return router
}

func issueTestToken(t *testing.T, authSvc *service.AuthService, role models.UserRole) string {
	t.Helper()
	token, err := authSvc.IssueToken(&models.JWTClaims{
		UserID: "user-1",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	authSvc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	router := newProtectedRouter(authSvc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	authSvc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	router := newProtectedRouter(authSvc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTAcceptsValidToken(t *testing.T) {
	authSvc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	router := newProtectedRouter(authSvc)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, authSvc, models.RoleAnalyst))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRBACForbidsWrongRole(t *testing.T) {
	authSvc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	router := newProtectedRouter(authSvc, models.RoleAdmin, models.RoleOfficer)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, authSvc, models.RoleObserver))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACAllowsPermittedRole(t *testing.T) {
	authSvc := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	router := newProtectedRouter(authSvc, models.RoleAdmin, models.RoleOfficer)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, authSvc, models.RoleOfficer))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
