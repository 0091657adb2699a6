// Command webhook-lambda accepts Z-API webhooks through API Gateway and puts
// them on the SQS turn queue, so WhatsApp traffic is acknowledged without the
// API server being up.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Erick-Marinho/Health-AI/cmd/mainconfig"
	"github.com/Erick-Marinho/Health-AI/internal/app/bootstrap"
	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const webhookPath = "/webhooks/zapi"

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("webhook-lambda needs SQS; set USE_MEMORY_QUEUE=false and CONVERSATION_QUEUE_URL")
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue, err := bootstrap.BuildQueue(cfg, awsCfg)
	if err != nil {
		logger.Error("failed to build queue", "error", err)
		os.Exit(1)
	}
	publisher := conversation.NewPublisher(queue, logger,
		conversation.WithJobRecorder(bootstrap.BuildJobTracker(cfg, awsCfg, logger)))

	webhook := zapi.NewWebhookHandler(publisher, logger, zapi.WithSessionRate(cfg.SessionRatePerMinute))
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, webhook, evt)
	})
}

func handle(ctx context.Context, webhook http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if path != webhookPath {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookPath, bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip
	}

	rw := newResponseBuffer()
	webhook.ServeHTTP(rw, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rw.status,
		Body:       rw.body.String(),
		Headers:    map[string]string{},
	}
	if ct := rw.header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	return out, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// responseBuffer captures a handler's response for the API Gateway reply.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: http.Header{}, status: http.StatusOK}
}

func (r *responseBuffer) Header() http.Header { return r.header }

func (r *responseBuffer) Write(p []byte) (int, error) { return r.body.Write(p) }

func (r *responseBuffer) WriteHeader(status int) { r.status = status }
