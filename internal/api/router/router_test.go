package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/internal/channels/webchat"
	"github.com/Erick-Marinho/Health-AI/internal/channels/whatsapp"
	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	"github.com/Erick-Marinho/Health-AI/internal/http/handlers"
	httpmiddleware "github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const testAdminSecret = "admin-secret"

type echoEngine struct{}

func (echoEngine) HandleTurn(_ context.Context, in scheduling.Inbound) (scheduling.Outbound, error) {
	return scheduling.Outbound{SessionID: in.SessionID, Text: "eco: " + in.Text}, nil
}

type countingQueue struct{ n int }

func (q *countingQueue) EnqueueTurn(context.Context, scheduling.Inbound) (string, error) {
	q.n++
	return "job", nil
}

func newTestRouter(t *testing.T) (http.Handler, *countingQueue, *scheduling.MemoryStore) {
	t.Helper()
	logger := logging.New("error")
	store := scheduling.NewMemoryStore()
	queue := &countingQueue{}
	limiter := httpmiddleware.NewRateLimiter(0, 2)
	t.Cleanup(limiter.Stop)

	return New(&Config{
		Logger:                logger,
		Conversations:         handlers.NewConversationHandler(echoEngine{}, logger),
		AdminSessions:         handlers.NewAdminSessionsHandler(store, nil, logger),
		ZAPIWebhook:           zapi.NewWebhookHandler(queue, logger),
		WhatsAppWebhook:       whatsapp.NewWebhookHandler("verify-me", queue, logger),
		Webchat:               webchat.NewHandler(queue, store, logger, nil),
		MetricsHandler:        http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		AdminAuthSecret:       testAdminSecret,
		WebchatAllowedOrigins: []string{"https://clinica.example"},
		APIRateLimiter:        limiter,
	}), queue, store
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := httpmiddleware.AdminClaims{Role: httpmiddleware.AdminRole, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, "# metrics", serve(r, http.MethodGet, "/metrics", "", nil).Body.String())
}

func TestRouterZAPIWebhook(t *testing.T) {
	r, queue, _ := newTestRouter(t)
	rec := serve(r, http.MethodPost, "/webhooks/zapi", `{"phone":"5511","messageId":"m1","text":{"message":"oi"}}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, queue.n)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodGet, "/webhooks/zapi", "", nil).Code)
}

func TestRouterWhatsAppWebhook(t *testing.T) {
	r, queue, _ := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	body := `{"object":"whatsapp_business_account","entry":[{"id":"W","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","metadata":{"phone_number_id":"P"},"messages":[{"id":"wamid.1","from":"5511","timestamp":"1","type":"text","text":{"body":"oi"}}]}}]}]}`
	rec = serve(r, http.MethodPost, "/webhooks/whatsapp", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, queue.n)
}

func TestRouterConversationAPI(t *testing.T) {
	r, _, _ := newTestRouter(t)
	headers := map[string]string{"Content-Type": "application/json", "X-Real-Ip": "10.1.1.1"}

	rec := serve(r, http.MethodPost, "/v1/conversations/s1/messages", `{"text":"oi"}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reply":"eco: oi"`)

	rec = serve(r, http.MethodPost, "/v1/conversations/s1/messages", `text=oi`, map[string]string{"Content-Type": "text/plain", "X-Real-Ip": "10.1.1.2"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	serve(r, http.MethodPost, "/v1/conversations/s1/messages", `{"text":"oi"}`, headers)
	rec = serve(r, http.MethodPost, "/v1/conversations/s1/messages", `{"text":"oi"}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	r, _, store := newTestRouter(t)
	state := scheduling.NewState("5511")
	state.BeginScheduling()
	require.NoError(t, store.Save(context.Background(), state))

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin/sessions/5511", "", nil).Code)

	auth := map[string]string{"Authorization": adminToken(t)}
	rec := serve(r, http.MethodGet, "/admin/sessions/5511", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"operation":"SCHEDULING"`)

	rec = serve(r, http.MethodDelete, "/admin/sessions/5511", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"operation":"NONE"`)

	assert.Equal(t, http.StatusNotImplemented, serve(r, http.MethodGet, "/admin/sessions/5511/bookings", "", auth).Code)
}

func TestRouterWebchatCORS(t *testing.T) {
	r, queue, _ := newTestRouter(t)

	rec := serve(r, http.MethodOptions, "/webchat/messages", "", map[string]string{
		"Origin":                        "https://clinica.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://clinica.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodPost, "/webchat/messages", `{"session_id":"abc","text":"oi"}`, map[string]string{"Origin": "https://clinica.example"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, queue.n)
}
