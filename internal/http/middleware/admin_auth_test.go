package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/sessions/5511", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	called := false
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "ops@clinic", claims.Subject)
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestAdminJWT(t *testing.T) {
	valid := AdminClaims{Role: AdminRole, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops@clinic",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}}
	noRole := valid
	noRole.Role = "viewer"
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"auth disabled", "", "Bearer " + signAdmin(t, "secret", valid), http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"not bearer", "secret", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "secret", "Bearer " + signAdmin(t, "other", valid), http.StatusUnauthorized},
		{"expired", "secret", "Bearer " + signAdmin(t, "secret", expired), http.StatusUnauthorized},
		{"no expiry", "secret", "Bearer " + signAdmin(t, "secret", noExpiry), http.StatusUnauthorized},
		{"wrong role", "secret", "Bearer " + signAdmin(t, "secret", noRole), http.StatusForbidden},
		{"valid", "secret", "Bearer " + signAdmin(t, "secret", valid), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := serveAdmin(t, tt.secret, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status == http.StatusOK, called)
		})
	}
}

func TestAdminJWTRejectsNoneAlgorithm(t *testing.T) {
	claims := AdminClaims{Role: AdminRole, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops@clinic",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	rec, called := serveAdmin(t, "secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func signAdmin(t *testing.T, secret string, claims AdminClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
