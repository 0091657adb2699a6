package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

type stubEnqueuer struct {
	turns []scheduling.Inbound
	err   error
}

func (s *stubEnqueuer) EnqueueTurn(_ context.Context, in scheduling.Inbound) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.turns = append(s.turns, in)
	return "job-1", nil
}

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "551130000000", "phone_number_id": "PNID"},
        "contacts": [{"wa_id": "5511999990000", "profile": {"name": "Ana"}}],
        "messages": [{"id": "wamid.1", "from": "5511999990000", "timestamp": "1717430400", "type": "text", "text": {"body": "  quero marcar consulta "}}]
      }
    }]
  }]
}`

const statusPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{"id": "WABA", "changes": [{"field": "messages", "value": {
    "messaging_product": "whatsapp",
    "metadata": {"phone_number_id": "PNID"},
    "statuses": [{"id": "wamid.out", "status": "delivered", "timestamp": "1717430401", "recipient_id": "5511999990000"}]
  }}]}]
}`

const imagePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{"id": "WABA", "changes": [{"field": "messages", "value": {
    "messaging_product": "whatsapp",
    "metadata": {"phone_number_id": "PNID"},
    "messages": [{"id": "wamid.2", "from": "5511999990000", "timestamp": "1717430400", "type": "image"}]
  }}]}]
}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postInbound(h *WebhookHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.HandleInbound(rec, req)
	return rec
}

func TestHandleVerification(t *testing.T) {
	h := NewWebhookHandler("token-clinica", &stubEnqueuer{}, logging.New("error"))

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"valid challenge", "hub.mode=subscribe&hub.verify_token=token-clinica&hub.challenge=1158201444", http.StatusOK, "1158201444"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=outro&hub.challenge=1", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=token-clinica&hub.challenge=1", http.StatusForbidden, ""},
		{"missing params", "hub.challenge=1", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.HandleVerification(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleVerificationWithoutConfiguredToken(t *testing.T) {
	h := NewWebhookHandler("", &stubEnqueuer{}, logging.New("error"))
	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=x&hub.challenge=1", nil)
	rec := httptest.NewRecorder()
	h.HandleVerification(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleInboundQueuesTextMessage(t *testing.T) {
	q := &stubEnqueuer{}
	h := NewWebhookHandler("token", q, logging.New("error"))

	rec := postInbound(h, textPayload, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(q.turns) != 1 {
		t.Fatalf("queued %d turns, want 1", len(q.turns))
	}
	want := scheduling.Inbound{
		SessionID: "5511999990000",
		MessageID: "wamid.1",
		Text:      "quero marcar consulta",
		Contact:   "5511999990000",
		Channel:   Channel,
	}
	if q.turns[0] != want {
		t.Fatalf("turn = %+v, want %+v", q.turns[0], want)
	}
}

func TestHandleInboundSkipsStatusesAndMedia(t *testing.T) {
	for name, body := range map[string]string{"status": statusPayload, "image": imagePayload} {
		t.Run(name, func(t *testing.T) {
			q := &stubEnqueuer{}
			rec := postInbound(NewWebhookHandler("token", q, logging.New("error")), body, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if len(q.turns) != 0 {
				t.Fatalf("queued %d turns, want 0", len(q.turns))
			}
		})
	}
}

func TestHandleInboundSignature(t *testing.T) {
	q := &stubEnqueuer{}
	h := NewWebhookHandler("token", q, logging.New("error"), WithAppSecret("app-secret"))

	if rec := postInbound(h, textPayload, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned: status = %d, want 401", rec.Code)
	}
	if rec := postInbound(h, textPayload, map[string]string{signatureHeader: sign("other", textPayload)}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d, want 401", rec.Code)
	}
	if len(q.turns) != 0 {
		t.Fatalf("queued %d turns before a valid signature", len(q.turns))
	}

	rec := postInbound(h, textPayload, map[string]string{signatureHeader: sign("app-secret", textPayload)})
	if rec.Code != http.StatusOK || len(q.turns) != 1 {
		t.Fatalf("signed: status = %d turns = %d", rec.Code, len(q.turns))
	}
}

func TestHandleInboundErrors(t *testing.T) {
	h := NewWebhookHandler("token", &stubEnqueuer{err: errors.New("queue down")}, logging.New("error"))
	if rec := postInbound(h, textPayload, nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("enqueue failure: status = %d, want 500", rec.Code)
	}
	if rec := postInbound(h, `{not json`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d, want 400", rec.Code)
	}
}

func TestHandleInboundThrottlesPerPhone(t *testing.T) {
	q := &stubEnqueuer{}
	h := NewWebhookHandler("token", q, logging.New("error"), WithSessionRate(1))
	postInbound(h, textPayload, nil)
	rec := postInbound(h, textPayload, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(q.turns) != 1 {
		t.Fatalf("queued %d turns, want 1", len(q.turns))
	}
}

func TestVerifySignature(t *testing.T) {
	body := `{"object":"whatsapp_business_account"}`
	valid := sign("segredo", body)
	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid", "segredo", valid, true},
		{"uppercase hex", "segredo", "sha256=" + strings.ToUpper(strings.TrimPrefix(valid, "sha256=")), true},
		{"empty secret", "", valid, false},
		{"missing prefix", "segredo", strings.TrimPrefix(valid, "sha256="), false},
		{"prefix only", "segredo", "sha256=", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, []byte(body), tt.signature); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
