package counselor

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Fixed replies returned instead of errors.
const (
	UnavailableReply = "System Error: AI service currently unavailable."
	TroubleReply     = "I'm having a little trouble thinking right now. Please ask again in a moment."
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxTokens   = 400
	defaultTemperature = 0.4
)

// HistorySource returns the latest n transcript entries for a student, oldest first.
type HistorySource interface {
	Window(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error)
}

// Options tunes the model call.
type Options struct {
	Model         string
	Timeout       time.Duration
	HistoryWindow int
	MaxTokens     int32
	Temperature   float32
}

// Counselor answers free-text questions the scripted rules do not cover.
type Counselor struct {
	client  LLMClient
	opts    Options
	metrics *metrics.DialogueMetrics
	logger  *logging.Logger
}

// New builds a counselor. A nil client yields UnavailableReply for every call.
func New(client LLMClient, opts Options, m *metrics.DialogueMetrics, logger *logging.Logger) *Counselor {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	return &Counselor{
		client:  client,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// HistoryWindow is how many transcript entries callers should pass to Respond.
func (c *Counselor) HistoryWindow() int {
	if c == nil {
		return 0
	}
	return c.opts.HistoryWindow
}

// Respond returns the model's reply, or one of the fixed apology strings.
// It never returns an error.
func (c *Counselor) Respond(ctx context.Context, message string, history []chatlog.Entry, profile students.ProfileView) string {
	if c == nil || c.client == nil {
		if c != nil {
			c.metrics.ObserveAI(metrics.AIOutcomeUnavailable)
		}
		return UnavailableReply
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.client.Complete(callCtx, c.buildRequest(message, history, profile))
	if err != nil {
		c.logger.Error("ai fallback failed", "error", err, "student_id", profile.StudentID)
		c.metrics.ObserveAI(metrics.AIOutcomeError)
		return TroubleReply
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		c.logger.Warn("ai fallback returned empty text", "student_id", profile.StudentID, "stop_reason", resp.StopReason)
		c.metrics.ObserveAI(metrics.AIOutcomeError)
		return TroubleReply
	}

	c.logger.Debug("ai fallback replied",
		"student_id", profile.StudentID,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	c.metrics.ObserveAI(metrics.AIOutcomeReply)
	return text
}

func (c *Counselor) buildRequest(message string, history []chatlog.Entry, profile students.ProfileView) LLMRequest {
	message = strings.TrimSpace(message)

	// The inbound message is logged before dispatch, so the window usually ends with it.
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Sender == chatlog.SenderUser && strings.TrimSpace(last.Message) == message {
			history = history[:n-1]
		}
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	for _, entry := range history {
		role := ChatRoleUser
		if entry.Sender == chatlog.SenderBot {
			role = ChatRoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: entry.Message})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	return LLMRequest{
		Model:       c.opts.Model,
		System:      []string{systemPrompt, contextBlock(profile)},
		Messages:    messages,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}
}

type tailReader interface {
	Tail(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error)
}

// LogHistory reads the AI context window straight from the chat log.
type LogHistory struct {
	log tailReader
}

func NewLogHistory(log tailReader) *LogHistory {
	return &LogHistory{log: log}
}

func (h *LogHistory) Window(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	return h.log.Tail(ctx, studentID, n)
}
