package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"surveypulse/api/models"
	"surveypulse/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(issuer *utils.TokenIssuer, apiKey string, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthRequired(issuer, apiKey)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleRequired(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("user_role"),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuthRequired(t *testing.T) {
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	other := utils.NewTokenIssuer("other-secret", time.Hour)

	adminToken, err := issuer.GenerateJWT(&models.User{ID: "u1", Email: "a@example.com", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	foreignToken, err := other.GenerateJWT(&models.User{ID: "u2", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	tests := []struct {
		name       string
		apiKey     string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{"no credentials", "", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer token", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminToken) }, http.StatusOK},
		{"cookie token", "", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt_token", Value: adminToken}) }, http.StatusOK},
		{"foreign signature", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreignToken) }, http.StatusUnauthorized},
		{"garbage token", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"matching api key", "svc-key", func(r *http.Request) { r.Header.Set("X-API-KEY", "svc-key") }, http.StatusOK},
		{"wrong api key", "svc-key", func(r *http.Request) { r.Header.Set("X-API-KEY", "guess") }, http.StatusUnauthorized},
		{"api key disabled", "", func(r *http.Request) { r.Header.Set("X-API-KEY", "") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(issuer, tt.apiKey)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRoleRequired(t *testing.T) {
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	viewerToken, _ := issuer.GenerateJWT(&models.User{ID: "v1", Role: models.RoleViewer})
	adminToken, _ := issuer.GenerateJWT(&models.User{ID: "a1", Role: models.RoleAdmin})

	r := newAuthRouter(issuer, "svc-key", models.RoleAdmin)

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"viewer denied", "Authorization", "Bearer " + viewerToken, http.StatusForbidden},
		{"admin allowed", "Authorization", "Bearer " + adminToken, http.StatusOK},
		{"service key is admin", "X-API-KEY", "svc-key", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set(tt.header, tt.value)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected unknown origin to be rejected, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(logrus.NewEntry(logger)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected generated request id header")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("expected info entry, got %+v", entry)
	}
	if entry.Data["status"] != http.StatusOK || entry.Data["path"] != "/ok" {
		t.Errorf("unexpected fields %v", entry.Data)
	}

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	entry = hook.LastEntry()
	if entry.Level != logrus.ErrorLevel {
		t.Errorf("expected error level for 500, got %v", entry.Level)
	}
	if entry.Data["req_id"] != "abc-123" || w.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("expected incoming request id to be reused, got %v", entry.Data["req_id"])
	}
}
