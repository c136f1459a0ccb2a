package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		skipPaths  []string
		path       string
		header     map[string]string
		wantStatus int
	}{
		{
			name:       "未配置密钥时放行",
			key:        "",
			path:       "/api/v1/timetable/generate",
			wantStatus: http.StatusOK,
		},
		{
			name:       "跳过路径放行",
			key:        "secret",
			skipPaths:  []string{"/health"},
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "缺少密钥拒绝",
			key:        "secret",
			path:       "/api/v1/timetable/generate",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "错误密钥拒绝",
			key:        "secret",
			path:       "/api/v1/timetable/generate",
			header:     map[string]string{"X-API-Key": "wrong"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "X-API-Key头通过",
			key:        "secret",
			path:       "/api/v1/timetable/generate",
			header:     map[string]string{"X-API-Key": "secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Bearer头通过",
			key:        "secret",
			path:       "/api/v1/timetable/generate",
			header:     map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(tt.key, tt.skipPaths)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("期望状态码 %d，实际 %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("期望500，实际 %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("期望 nosniff，实际 %q", got)
	}
}
