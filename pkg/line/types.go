// Package line implements the subset of the LINE Messaging API the
// bot needs: webhook signature validation, the event envelope, and
// the reply endpoint.
package line

// CallbackRequest is the webhook body delivered by the platform.
type CallbackRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event.
type Event struct {
	Type       string        `json:"type"`
	Timestamp  int64         `json:"timestamp"`
	ReplyToken string        `json:"replyToken"`
	Source     Source        `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
}

// IsTextMessage reports whether the event carries user text.
func (e *Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message != nil && e.Message.Type == "text"
}

// Source identifies the sender.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// EventMessage is the message payload inside a message event.
type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextMessage is an outbound text message.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextMessage builds an outbound text message.
func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}
