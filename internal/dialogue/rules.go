package dialogue

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
)

// Rule names, also used as metric labels.
const (
	RuleGreeting         = "greeting"
	RuleStatus           = "status"
	RuleApply            = "apply"
	RuleNameCapture      = "name_capture"
	RuleCountrySelection = "country_selection"
	RuleBook             = "book"
	RuleDateCapture      = "date_capture"
	RuleAIFallback       = "ai_fallback"
	RuleVoice            = "voice_stub"
)

const (
	namePrefix = "name:"
	datePrefix = "date:"
)

var greetingKeywords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hlo": true,
	"start": true, "/start": true, "menu": true,
}

// Rule is one entry of the ordered dispatch table. The first rule whose Match
// returns true handles the turn.
type Rule struct {
	Name   string
	Match  func(t *turn) bool
	Handle func(ctx context.Context, t *turn) (Outcome, error)
}

// turn is the per-message state rebuilt from the profile store.
type turn struct {
	channel  string
	identity string
	raw      string // trimmed, original casing
	text     string // trimmed, lowercased
	profile  students.ProfileView
}

func (e *Engine) buildRules() []Rule {
	return []Rule{
		{Name: RuleGreeting, Match: isGreeting, Handle: e.handleGreeting},
		{Name: RuleStatus, Match: isCommand("status"), Handle: e.handleStatus},
		{Name: RuleApply, Match: isCommand("apply"), Handle: e.handleApply},
		{Name: RuleNameCapture, Match: isNameCapture, Handle: e.handleNameCapture},
		{Name: RuleCountrySelection, Match: isCountrySelection, Handle: e.handleCountrySelection},
		{Name: RuleBook, Match: isCommand("book"), Handle: e.handleBook},
		{Name: RuleDateCapture, Match: isDateCapture, Handle: e.handleDateCapture},
	}
}

// Rules returns the dispatch table in priority order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

func isGreeting(t *turn) bool {
	return greetingKeywords[t.text]
}

func isCommand(word string) func(t *turn) bool {
	return func(t *turn) bool {
		return t.text == word || t.text == "/"+word
	}
}

func isNameCapture(t *turn) bool {
	return strings.HasPrefix(t.text, namePrefix) && capturedName(t.text) != ""
}

func isCountrySelection(t *turn) bool {
	_, ok := countryTokens[t.text]
	return ok
}

func isDateCapture(t *turn) bool {
	return strings.HasPrefix(t.text, datePrefix)
}

// capturedName title-cases the lowercased value, so "McDonald" becomes "Mcdonald".
func capturedName(text string) string {
	value := strings.TrimSpace(strings.TrimPrefix(text, namePrefix))
	if value == "" {
		return ""
	}
	return cases.Title(language.Und).String(value)
}

// afterPrefix returns what follows prefix in raw, keeping the user's casing.
func afterPrefix(raw, lowered, prefix string) string {
	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return strings.TrimSpace(raw[len(prefix):])
	}
	return strings.TrimSpace(strings.TrimPrefix(lowered, prefix))
}

func (e *Engine) handleGreeting(ctx context.Context, t *turn) (Outcome, error) {
	e.reply(ctx, t, welcomeMessage(t.profile.Name))
	return OutcomeMenu, nil
}

func (e *Engine) handleStatus(ctx context.Context, t *turn) (Outcome, error) {
	e.reply(ctx, t, statusMessage(t.profile))
	return OutcomeStatus, nil
}

func (e *Engine) handleApply(ctx context.Context, t *turn) (Outcome, error) {
	if t.profile.Country == "" {
		e.reply(ctx, t, selectCountryFirstMsg)
		return OutcomeError, nil
	}
	e.reply(ctx, t, applyPromptMsg)
	return OutcomeApplyStart, nil
}

func (e *Engine) handleNameCapture(ctx context.Context, t *turn) (Outcome, error) {
	name := capturedName(t.text)
	if _, err := e.profiles.Update(ctx, t.identity, students.Patch{Name: &name}); err != nil {
		return "", err
	}
	e.reply(ctx, t, nameSavedMessage(name))
	return OutcomeNameSaved, nil
}

func (e *Engine) handleCountrySelection(ctx context.Context, t *turn) (Outcome, error) {
	country := countryTokens[t.text]
	app, created, err := e.leads.CreateLead(ctx, t.identity, t.channel, country)
	if err != nil {
		return "", err
	}
	if created && e.notifier != nil {
		e.notifier.NotifyNewLead(ctx, *app, students.Student{
			ID:         t.profile.StudentID,
			ExternalID: t.identity,
			Channel:    t.channel,
			Name:       t.profile.Name,
			Email:      t.profile.Email,
		})
	}
	e.reply(ctx, t, docsMessage(country))
	return OutcomeDocs, nil
}

func (e *Engine) handleBook(ctx context.Context, t *turn) (Outcome, error) {
	e.reply(ctx, t, bookPromptMsg)
	return OutcomeBook, nil
}

func (e *Engine) handleDateCapture(ctx context.Context, t *turn) (Outcome, error) {
	if e.appointments != nil {
		notes := afterPrefix(t.raw, t.text, datePrefix)
		if _, err := e.appointments.Request(ctx, t.profile.StudentID, notes); err != nil {
			return "", err
		}
	}
	e.reply(ctx, t, bookConfirmMsg)
	return OutcomeBookConfirm, nil
}

func (e *Engine) handleAIFallback(ctx context.Context, t *turn) (Outcome, error) {
	var history []chatlog.Entry
	if e.history != nil {
		window, err := e.history.Window(ctx, t.profile.StudentID, e.ai.HistoryWindow())
		if err != nil {
			e.logger.Warn("dialogue: history window unavailable", "error", err, "student_id", t.profile.StudentID)
		} else {
			history = window
		}
	}
	e.reply(ctx, t, e.ai.Respond(ctx, t.raw, history, t.profile))
	return OutcomeAI, nil
}
