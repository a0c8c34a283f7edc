package counselor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

type stubLLM struct {
	resp     LLMResponse
	err      error
	requests []LLMRequest
	deadline bool
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	_, s.deadline = ctx.Deadline()
	return s.resp, s.err
}

func TestRespondWithoutClientIsUnavailable(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDialogueMetrics(reg)
	c := New(nil, Options{}, m, logging.Default())

	got := c.Respond(context.Background(), "how much is IELTS?", nil, students.ProfileView{})
	assert.Equal(t, UnavailableReply, got)
	count, err := testutil.GatherAndCount(reg, metrics.AIFallbackFamily)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRespondNilCounselor(t *testing.T) {
	var c *Counselor
	assert.Equal(t, UnavailableReply, c.Respond(context.Background(), "hi there", nil, students.ProfileView{}))
	assert.Zero(t, c.HistoryWindow())
}

func TestRespondProviderErrorIsTrouble(t *testing.T) {
	llm := &stubLLM{err: errors.New("quota exceeded")}
	c := New(llm, Options{Timeout: time.Second}, nil, logging.Default())

	got := c.Respond(context.Background(), "is a gap year ok?", nil, students.ProfileView{})
	assert.Equal(t, TroubleReply, got)
	assert.True(t, llm.deadline, "expected the model call to carry a deadline")
}

func TestRespondEmptyTextIsTrouble(t *testing.T) {
	llm := &stubLLM{resp: LLMResponse{Text: "   ", StopReason: "SAFETY"}}
	c := New(llm, Options{}, nil, logging.Default())

	assert.Equal(t, TroubleReply, c.Respond(context.Background(), "hello?", nil, students.ProfileView{}))
}

func TestRespondBuildsPromptFromProfileAndHistory(t *testing.T) {
	llm := &stubLLM{resp: LLMResponse{Text: "  Yes, IELTS 6.0 is enough for most colleges.  "}}
	c := New(llm, Options{Model: "gemini-2.0-flash"}, nil, logging.Default())

	history := []chatlog.Entry{
		{Sender: chatlog.SenderUser, Message: "canada"},
		{Sender: chatlog.SenderBot, Message: "Great choice!"},
		{Sender: chatlog.SenderUser, Message: "Is IELTS 6 enough?"},
	}
	profile := students.ProfileView{StudentID: 7, Name: "Ali Khan", Country: "Canada", Status: "new_lead"}

	got := c.Respond(context.Background(), "Is IELTS 6 enough?", history, profile)
	assert.Equal(t, "Yes, IELTS 6.0 is enough for most colleges.", got)

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "gemini-2.0-flash", req.Model)
	require.Len(t, req.System, 2)
	assert.Contains(t, req.System[0], "VisaBot")
	assert.Contains(t, req.System[0], "Canada, UK, USA, and Australia")
	assert.Contains(t, req.System[1], "- Name: Ali Khan")
	assert.Contains(t, req.System[1], "- Interested Info: Canada")
	assert.Contains(t, req.System[1], "- Application Status: new_lead")

	// the trailing copy of the current message is not repeated
	require.Len(t, req.Messages, 3)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "canada"}, req.Messages[0])
	assert.Equal(t, ChatMessage{Role: ChatRoleAssistant, Content: "Great choice!"}, req.Messages[1])
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "Is IELTS 6 enough?"}, req.Messages[2])
}

func TestContextBlockDefaults(t *testing.T) {
	block := contextBlock(students.ProfileView{})
	for _, want := range []string{"- Name: Student", "- Interested Info: Unknown", "- Application Status: New"} {
		if !strings.Contains(block, want) {
			t.Fatalf("expected %q in context block, got %q", want, block)
		}
	}
}

func TestLogHistoryWindow(t *testing.T) {
	ctx := context.Background()
	log := chatlog.NewInMemoryRepository()
	for _, text := range []string{"one", "two", "three"} {
		_, err := log.Append(ctx, 1, chatlog.SenderUser, text)
		require.NoError(t, err)
	}

	h := NewLogHistory(log)
	got, err := h.Window(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)

	none, err := h.Window(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
