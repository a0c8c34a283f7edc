package whatsapp

// WebhookEvent is the top-level structure of a WhatsApp Cloud API webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single business account entry in the webhook payload.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one field update; inbound messages arrive under field "messages".
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds contacts and messages (or delivery statuses, which are ignored).
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

// Contact maps a wa_id to the user's profile name.
type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

// Profile is the user's public WhatsApp profile.
type Profile struct {
	Name string `json:"name"`
}

// Message is one inbound user message.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Audio       *Audio       `json:"audio,omitempty"`
	Button      *Button      `json:"button,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// Text is a plain text body.
type Text struct {
	Body string `json:"body"`
}

// Audio is an audio attachment; Voice is set for recorded voice notes.
type Audio struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Voice    bool   `json:"voice"`
}

// Button is a quick-reply template button tap.
type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Interactive is a reply to an interactive list or button message.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply is the chosen option of an interactive message.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SendRequest is the payload posted to /{phone_number_id}/messages.
type SendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type,omitempty"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             SendText `json:"text"`
}

// SendText is the outbound text body.
type SendText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

// SendResponse is the Graph API response to a send.
type SendResponse struct {
	Messages []SentMessage `json:"messages,omitempty"`
	Error    *APIError     `json:"error,omitempty"`
}

// SentMessage identifies an accepted outbound message.
type SentMessage struct {
	ID string `json:"id"`
}

// APIError is the Graph API error envelope.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}
