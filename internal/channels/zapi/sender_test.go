package zapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/internal/conversation"
)

func TestSenderPostsToZAPI(t *testing.T) {
	var gotPath, gotToken string
	var gotBody sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("Client-Token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewSender(SenderConfig{
		BaseURL:       srv.URL + "/instances",
		InstanceID:    "inst",
		InstanceToken: "tok",
		ClientToken:   "client-secret",
	}, nil)
	require.NoError(t, err)

	err = s.SendReply(context.Background(), conversation.Reply{To: "5511999990000", Text: "Olá!"})
	require.NoError(t, err)
	assert.Equal(t, "/instances/inst/token/tok/send-text", gotPath)
	assert.Equal(t, "client-secret", gotToken)
	assert.Equal(t, sendTextRequest{Phone: "5511999990000", Message: "Olá!"}, gotBody)
}

func TestSenderPrefersN8N(t *testing.T) {
	var raw []byte
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		gotToken = r.Header.Get("Client-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewSender(SenderConfig{N8NWebhookURL: srv.URL, ClientToken: "unused"}, nil)
	require.NoError(t, err)

	err = s.SendReply(context.Background(), conversation.Reply{To: "55119", Text: "oi", InReplyTo: "MSG1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"55119","message":"oi","original_received_message_id":"MSG1"}`, string(raw))
	assert.Empty(t, gotToken)
}

func TestSenderErrors(t *testing.T) {
	_, err := NewSender(SenderConfig{}, nil)
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusBadRequest)
	}))
	defer srv.Close()

	s, err := NewSender(SenderConfig{BaseURL: srv.URL, InstanceID: "i", InstanceToken: "t"}, nil)
	require.NoError(t, err)

	err = s.SendReply(context.Background(), conversation.Reply{To: "55119", Text: "oi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "instance disconnected")

	err = s.SendReply(context.Background(), conversation.Reply{Text: "oi"})
	require.Error(t, err)
}
