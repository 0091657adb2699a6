package zapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const defaultBaseURL = "https://api.z-api.io/instances"

// SenderConfig configures outbound delivery. When N8NWebhookURL is set every
// reply is posted there and the Z-API credentials are not used.
type SenderConfig struct {
	BaseURL       string
	InstanceID    string
	InstanceToken string
	ClientToken   string
	N8NWebhookURL string
	HTTPClient    *http.Client
}

// Sender delivers replies to WhatsApp through Z-API or an N8N relay.
type Sender struct {
	cfg    SenderConfig
	client *http.Client
	logger *logging.Logger
}

// NewSender validates the configuration.
func NewSender(cfg SenderConfig, logger *logging.Logger) (*Sender, error) {
	cfg.N8NWebhookURL = strings.TrimSpace(cfg.N8NWebhookURL)
	if cfg.N8NWebhookURL == "" && (strings.TrimSpace(cfg.InstanceID) == "" || strings.TrimSpace(cfg.InstanceToken) == "") {
		return nil, errors.New("zapi: instance id and token are required without an n8n webhook")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{cfg: cfg, client: client, logger: logger.WithComponent("zapi")}, nil
}

// SendReply implements conversation.ReplySender.
func (s *Sender) SendReply(ctx context.Context, reply conversation.Reply) error {
	phone := strings.TrimSpace(reply.To)
	if phone == "" {
		return errors.New("zapi: recipient phone required")
	}
	if s.cfg.N8NWebhookURL != "" {
		return s.post(ctx, s.cfg.N8NWebhookURL, n8nRequest{
			Phone:                     phone,
			Message:                   reply.Text,
			OriginalReceivedMessageID: reply.InReplyTo,
		}, false)
	}
	endpoint := fmt.Sprintf("%s/%s/token/%s/send-text", s.cfg.BaseURL, s.cfg.InstanceID, s.cfg.InstanceToken)
	return s.post(ctx, endpoint, sendTextRequest{Phone: phone, Message: reply.Text}, true)
}

func (s *Sender) post(ctx context.Context, endpoint string, payload any, withClientToken bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("zapi: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("zapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withClientToken && s.cfg.ClientToken != "" {
		req.Header.Set("Client-Token", s.cfg.ClientToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("zapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("zapi: send failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	s.logger.Debug("reply delivered", "via_n8n", !withClientToken)
	return nil
}
