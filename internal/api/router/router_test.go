package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/api/handler"
	"pae-asistencia/pkg/jwt"
)

func setupTestEngine(t *testing.T) (*jwt.Manager, http.Handler) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.CORS.AllowOrigins = []string{"http://localhost:3000"}
	cfg.Server.BodyLimitBytes = 1 << 20
	cfg.Auth = config.AuthConfig{JWTSecret: "router-test-secret-value", Issuer: "pae-asistencia", AccessTokenTTL: time.Hour}

	mgr := jwt.NewManager(&cfg.Auth)
	// 只验证中间件链，处理器不会被调用
	return mgr, Setup(cfg, &handler.Handler{}, mgr, nil, nil, zap.NewNop())
}

func TestSetup_Health(t *testing.T) {
	_, engine := setupTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("所有响应都应携带 X-Request-ID")
	}
}

func TestSetup_RequiresToken(t *testing.T) {
	_, engine := setupTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/reports/summary?period=today", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("未携带 Token 期望 401，实际 %d", w.Code)
	}
}

func TestSetup_TeacherCannotManageRoster(t *testing.T) {
	mgr, engine := setupTestEngine(t)
	token, err := mgr.GenerateAccessToken("u-1", jwt.RoleTeacher, "Norte")
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/v1/students"},
		{"POST", "/api/v1/students/import"},
		{"PUT", "/api/v1/groups/rename"},
		{"POST", "/api/v1/schedules/generate"},
		{"PUT", "/api/v1/schedules/2024-01-08"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s 期望 403，实际 %d", route.method, route.path, w.Code)
		}
	}
}
