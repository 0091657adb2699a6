package whatsapp

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

const (
	defaultGraphBase  = "https://graph.facebook.com"
	defaultAPIVersion = "v19.0"
)

// SenderConfig configures delivery through the Graph API.
type SenderConfig struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	HTTPClient    *http.Client
}

// Sender delivers replies with the WhatsApp Cloud API.
type Sender struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *logging.Logger
}

// NewSender validates the configuration.
func NewSender(cfg SenderConfig, logger *logging.Logger) (*Sender, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	phoneID := strings.TrimSpace(cfg.PhoneNumberID)
	if token == "" || phoneID == "" {
		return nil, errors.New("whatsapp: access token and phone number id are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultGraphBase
	}
	version := strings.Trim(strings.TrimSpace(cfg.APIVersion), "/")
	if version == "" {
		version = defaultAPIVersion
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{
		endpoint: fmt.Sprintf("%s/%s/%s/messages", base, version, phoneID),
		token:    token,
		client:   client,
		logger:   logger.WithComponent("whatsapp"),
	}, nil
}

// SendReply implements conversation.ReplySender.
func (s *Sender) SendReply(ctx context.Context, reply conversation.Reply) error {
	to := strings.TrimSpace(reply.To)
	if to == "" {
		return errors.New("whatsapp: recipient required")
	}
	body, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             sendText{Body: reply.Text},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("whatsapp: read response: %w", err)
	}
	var out sendResponse
	_ = json.Unmarshal(raw, &out)
	if out.Error != nil {
		return fmt.Errorf("whatsapp: api error %d (%s): %s", out.Error.Code, out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return fmt.Errorf("whatsapp: send failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	messageID := ""
	if len(out.Messages) > 0 {
		messageID = out.Messages[0].ID
	}
	s.logger.Debug("reply delivered", "message_id", messageID, "in_reply_to", reply.InReplyTo)
	return nil
}
