package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

func event(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		Headers: map[string]string{"content-type": "application/json"},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.9",
			},
		},
	}
}

func newWebhook() (*zapi.WebhookHandler, *conversation.MemoryQueue) {
	queue := conversation.NewMemoryQueue(4)
	logger := logging.New("error")
	return zapi.NewWebhookHandler(conversation.NewPublisher(queue, logger), logger), queue
}

func TestHandleHealth(t *testing.T) {
	webhook, _ := newWebhook()
	resp, err := handle(context.Background(), webhook, event(http.MethodGet, "/health", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Body)
}

func TestHandleRoutes(t *testing.T) {
	webhook, _ := newWebhook()

	resp, err := handle(context.Background(), webhook, event(http.MethodPost, "/webhooks/unknown", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = handle(context.Background(), webhook, event(http.MethodGet, webhookPath, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleInvalidBase64Body(t *testing.T) {
	webhook, _ := newWebhook()
	evt := event(http.MethodPost, webhookPath, "not-base64!")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), webhook, evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleQueuesMessage(t *testing.T) {
	webhook, queue := newWebhook()
	payload := `{"phone":"5511987654321","messageId":"m-1","text":{"message":"quero marcar consulta"}}`
	evt := event(http.MethodPost, webhookPath, base64.StdEncoding.EncodeToString([]byte(payload)))
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), webhook, evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "queued", body["status"])
	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, 1, queue.Len())
}

func TestHandleIgnoresOwnMessages(t *testing.T) {
	webhook, queue := newWebhook()
	payload := `{"phone":"5511987654321","fromMe":true,"text":{"message":"oi"}}`

	resp, err := handle(context.Background(), webhook, event(http.MethodPost, webhookPath, payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, queue.Len())
}
