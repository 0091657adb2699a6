package zapi

// WebhookPayload is the subset of the Z-API "on message received" callback
// the service reads.
type WebhookPayload struct {
	Phone      string       `json:"phone"`
	MessageID  string       `json:"messageId"`
	FromMe     bool         `json:"fromMe"`
	IsGroup    bool         `json:"isGroup"`
	Text       *TextContent `json:"text,omitempty"`
	SenderName string       `json:"senderName,omitempty"`
}

// TextContent carries the body of a text message.
type TextContent struct {
	Message string `json:"message"`
}

// MessageText returns the text body or "" for non-text messages.
func (p WebhookPayload) MessageText() string {
	if p.Text == nil {
		return ""
	}
	return p.Text.Message
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type n8nRequest struct {
	Phone                     string `json:"phone"`
	Message                   string `json:"message"`
	OriginalReceivedMessageID string `json:"original_received_message_id,omitempty"`
}
