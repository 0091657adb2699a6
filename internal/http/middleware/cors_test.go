package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{"listed origin", []string{"https://clinica.example"}, http.MethodPost, "https://clinica.example", false, "https://clinica.example", http.StatusOK, true},
		{"unknown origin", []string{"https://clinica.example"}, http.MethodPost, "https://evil.example", false, "", http.StatusOK, true},
		{"wildcard", []string{" * "}, http.MethodGet, "https://any.example", false, "https://any.example", http.StatusOK, true},
		{"no origin header", []string{"*"}, http.MethodGet, "", false, "", http.StatusOK, true},
		{"preflight", []string{"https://clinica.example"}, http.MethodOptions, "https://clinica.example", true, "https://clinica.example", http.StatusNoContent, false},
		{"preflight from unknown origin", []string{"https://clinica.example"}, http.MethodOptions, "https://evil.example", true, "", http.StatusForbidden, false},
		{"unit subdomain", []string{"https://*.clinica.com.br"}, http.MethodPost, "https://centro.clinica.com.br", false, "https://centro.clinica.com.br", http.StatusOK, true},
		{"bare domain does not match subdomain pattern", []string{"https://*.clinica.com.br"}, http.MethodPost, "https://clinica.com.br", false, "", http.StatusOK, true},
		{"pattern checks scheme", []string{"https://*.clinica.com.br"}, http.MethodPost, "http://centro.clinica.com.br", false, "", http.StatusOK, true},
		{"trailing slash in config", []string{"https://clinica.example/"}, http.MethodGet, "https://clinica.example", false, "https://clinica.example", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := CORS(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/webchat/messages", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantHandler {
				t.Errorf("handler called = %v, want %v", called, tt.wantHandler)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
					t.Errorf("Access-Control-Allow-Methods = %q", got)
				}
			}
		})
	}
}
