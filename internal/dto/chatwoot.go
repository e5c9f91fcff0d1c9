package dto

// ChatwootWebhook is the subset of a Chatwoot "message_created" event the
// service reads.
type ChatwootWebhook struct {
	Event        string               `json:"event"`
	ID           int64                `json:"id"`
	Content      string               `json:"content"`
	MessageType  string               `json:"message_type"`
	Private      bool                 `json:"private"`
	Conversation ChatwootConversation `json:"conversation"`
}

type ChatwootConversation struct {
	ID int64 `json:"id"`
}

// WebhookResponse is always sent with HTTP 200 so Chatwoot does not retry.
type WebhookResponse struct {
	OK      bool     `json:"ok"`
	Ignored string   `json:"ignored,omitempty"`
	Replied bool     `json:"replied,omitempty"`
	Found   bool     `json:"found,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type ChatwootMessage struct {
	Content           string         `json:"content"`
	MessageType       string         `json:"message_type"`
	Private           bool           `json:"private"`
	ContentType       string         `json:"content_type"`
	ContentAttributes map[string]any `json:"content_attributes"`
}

type ChatwootLabels struct {
	Labels []string `json:"labels"`
}
