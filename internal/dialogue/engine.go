// Package dialogue turns normalized inbound messages into scripted or AI replies.
package dialogue

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/studyvisa-ai-platform/internal/appointments"
	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/counselor"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Outcome tags what a turn did. It doubles as the webhook status tag.
type Outcome string

const (
	OutcomeMenu        Outcome = "replied_menu"
	OutcomeStatus      Outcome = "replied_status"
	OutcomeError       Outcome = "replied_error"
	OutcomeApplyStart  Outcome = "replied_apply_start"
	OutcomeNameSaved   Outcome = "replied_name_saved"
	OutcomeDocs        Outcome = "replied_docs"
	OutcomeBook        Outcome = "replied_book"
	OutcomeBookConfirm Outcome = "replied_book_confirm"
	OutcomeAI          Outcome = "replied_ai"
	OutcomeVoice       Outcome = "replied_voice"
	OutcomeIgnored     Outcome = "ignored"
)

const defaultVoiceDelay = 2 * time.Second

type profileStore interface {
	ProfileView(ctx context.Context, identity, channel, displayName string) (students.ProfileView, error)
	Update(ctx context.Context, identity string, patch students.Patch) (bool, error)
}

type leadCreator interface {
	CreateLead(ctx context.Context, identity, channel, country string) (*leads.Application, bool, error)
}

type transcriptWriter interface {
	Append(ctx context.Context, studentID int64, sender chatlog.Sender, text string) (*chatlog.Entry, error)
}

type appointmentRequester interface {
	Request(ctx context.Context, studentID int64, notes string) (*appointments.Appointment, error)
}

type responder interface {
	Respond(ctx context.Context, message string, history []chatlog.Entry, profile students.ProfileView) string
	HistoryWindow() int
}

type historyRecorder interface {
	Record(ctx context.Context, entry chatlog.Entry) error
}

type replySender interface {
	Send(ctx context.Context, channel, identity, text string)
}

type leadNotifier interface {
	NotifyNewLead(ctx context.Context, app leads.Application, student students.Student)
}

// Deps wires the engine's collaborators. Profiles, Leads, Log and Sender are
// required; the rest are optional.
type Deps struct {
	Profiles     profileStore
	Leads        leadCreator
	Log          transcriptWriter
	Sender       replySender
	Appointments appointmentRequester
	AI           responder
	History      counselor.HistorySource
	Recorder     historyRecorder
	Notifier     leadNotifier
	Metrics      *metrics.DialogueMetrics
	Logger       *logging.Logger
	VoiceDelay   time.Duration
}

// Engine is the conversational state machine. It keeps no per-student state:
// every turn is rebuilt from the profile store and the message text.
type Engine struct {
	profiles     profileStore
	leads        leadCreator
	log          transcriptWriter
	sender       replySender
	appointments appointmentRequester
	ai           responder
	history      counselor.HistorySource
	recorder     historyRecorder
	notifier     leadNotifier
	metrics      *metrics.DialogueMetrics
	logger       *logging.Logger
	tracer       trace.Tracer
	voiceDelay   time.Duration
	rules        []Rule
}

func NewEngine(d Deps) *Engine {
	if d.Profiles == nil || d.Leads == nil || d.Log == nil || d.Sender == nil {
		panic("dialogue: profiles, leads, log and sender are required")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.AI == nil {
		d.AI = counselor.New(nil, counselor.Options{}, d.Metrics, d.Logger)
	}
	if d.VoiceDelay <= 0 {
		d.VoiceDelay = defaultVoiceDelay
	}
	e := &Engine{
		profiles:     d.Profiles,
		leads:        d.Leads,
		log:          d.Log,
		sender:       d.Sender,
		appointments: d.Appointments,
		ai:           d.AI,
		history:      d.History,
		recorder:     d.Recorder,
		notifier:     d.Notifier,
		metrics:      d.Metrics,
		logger:       d.Logger,
		tracer:       otel.Tracer("studyvisa.internal.dialogue"),
		voiceDelay:   d.VoiceDelay,
	}
	e.rules = e.buildRules()
	return e
}

// HandleTurn runs one inbound message through the rule table and sends the
// reply. Errors come from the stores; provider and AI failures never surface.
func (e *Engine) HandleTurn(ctx context.Context, evt channels.InboundEvent) (Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.turn", trace.WithAttributes(
		attribute.String("channel", evt.Channel),
		attribute.Bool("voice", evt.Voice),
	))
	defer span.End()

	raw := strings.TrimSpace(evt.Text)
	if raw == "" && !evt.Voice {
		return OutcomeIgnored, nil
	}

	profile, err := e.profiles.ProfileView(ctx, evt.Identity, evt.Channel, evt.DisplayName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve profile")
		return "", err
	}

	t := &turn{
		channel:  evt.Channel,
		identity: evt.Identity,
		raw:      raw,
		text:     strings.ToLower(raw),
		profile:  profile,
	}

	inbound := raw
	if evt.Voice {
		inbound = VoiceNoteMarker
	}
	if err := e.record(ctx, profile.StudentID, chatlog.SenderUser, inbound); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "log inbound")
		return "", err
	}

	rule, outcome, err := e.dispatch(ctx, t, evt.Voice)
	span.SetAttributes(attribute.String("rule", rule), attribute.String("outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, rule)
		e.logger.Error("dialogue: turn failed", "error", err, "rule", rule, "channel", evt.Channel, "student_id", profile.StudentID)
		return outcome, err
	}

	e.metrics.ObserveTurn(evt.Channel, rule)
	e.logger.Info("dialogue: turn handled",
		"channel", evt.Channel,
		"student_id", profile.StudentID,
		"new_student", profile.CreatedNew,
		"rule", rule,
		"outcome", string(outcome),
	)
	return outcome, nil
}

func (e *Engine) dispatch(ctx context.Context, t *turn, voice bool) (string, Outcome, error) {
	if voice {
		outcome, err := e.handleVoice(ctx, t)
		return RuleVoice, outcome, err
	}
	for _, r := range e.rules {
		if r.Match(t) {
			outcome, err := r.Handle(ctx, t)
			return r.Name, outcome, err
		}
	}
	outcome, err := e.handleAIFallback(ctx, t)
	return RuleAIFallback, outcome, err
}

// handleVoice acknowledges, waits as if transcribing, then sends a canned answer.
func (e *Engine) handleVoice(ctx context.Context, t *turn) (Outcome, error) {
	e.reply(ctx, t, voiceAckMsg)

	timer := time.NewTimer(e.voiceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return OutcomeVoice, ctx.Err()
	case <-timer.C:
	}

	e.reply(ctx, t, voiceAnswerMsg)
	return OutcomeVoice, nil
}

// reply sends text to the student and logs it as a bot message. Logging
// failures are reported but do not fail the turn once the reply is out.
func (e *Engine) reply(ctx context.Context, t *turn, text string) {
	e.sender.Send(ctx, t.channel, t.identity, text)
	if err := e.record(ctx, t.profile.StudentID, chatlog.SenderBot, text); err != nil {
		e.logger.Warn("dialogue: failed to log bot reply", "error", err, "student_id", t.profile.StudentID)
	}
}

func (e *Engine) record(ctx context.Context, studentID int64, sender chatlog.Sender, text string) error {
	entry, err := e.log.Append(ctx, studentID, sender, text)
	if err != nil {
		return err
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, *entry); err != nil {
			e.logger.Warn("dialogue: history cache record failed", "error", err, "student_id", studentID)
		}
	}
	return nil
}
