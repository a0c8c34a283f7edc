package dialogue

import (
	"fmt"

	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
)

// VoiceNoteMarker is the transcript text logged for an inbound voice note.
const VoiceNoteMarker = "[voice note]"

const (
	selectCountryFirstMsg = "Please select a country first (e.g., type 'Canada')."
	applyPromptMsg        = "Great! To start your application, please reply with your *Full Name* like this:\n\nName: John Doe"
	bookPromptMsg         = "📅 *Book an Appointment*\n" +
		"We have slots available for consultation in Lahore/Islamabad or Online.\n\n" +
		"Reply with your preferred date:\n" +
		"e.g., *Date: Tomorrow 3 PM*"
	bookConfirmMsg = "✅ Appointment Confirmed! Our team will call you to finalize."

	voiceAckMsg = "🎤 *Voice Note Received*\n" +
		"I am listening to your query... (AI Processing)\n\n" +
		"Please allow me a moment to transcribe and consult the Visa Expert."
	voiceAnswerMsg = "💡 *AI Response*: I understand you are asking about gap years. Yes, for Canada, a gap up to 2 years is acceptable with proper justification (Experience Letter)."
)

// countryTokens maps the menu shorthand and lowercase names to canonical countries.
var countryTokens = map[string]string{
	"1": "Canada", "canada": "Canada",
	"2": "UK", "uk": "UK",
	"3": "USA", "usa": "USA",
	"4": "Australia", "australia": "Australia",
}

// requiredDocs is the Pakistan-specific checklist per destination.
var requiredDocs = map[string]string{
	"Canada":    "🇨🇦 *Canada Study Visa (Pakistan Req):*\n- Passport (valid 6mo)\n- IELTS (6.0+ / PTE 60)\n- Matric & FSc/Inter Transcripts (IBCC Attested)\n- FRC (Family Reg Cert)\n- Bank Statement (40 Lakhs+)\n- Polio Card",
	"UK":        "🇬🇧 *UK Study Visa (Pakistan Req):*\n- Passport\n- CAS Letter\n- IELTS/PTE/OIETC\n- Bank Statement (28 days old, ~50 Lakhs)\n- TB Test (IOM)\n- FRC",
	"USA":       "🇺🇸 *USA Study Visa (Pakistan Req):*\n- Passport\n- I-20 Form\n- DS-160\n- SEVIS Fee ($350)\n- Interview Prep (Critical)\n- Bank Statement (60-80 Lakhs)",
	"Australia": "🇦🇺 *Australia Study Visa (Pakistan Req):*\n- Passport\n- CoE\n- OSHC (Health Ins)\n- GTE/GS Statement\n- FRC & Polio Card\n- Bank Statement (Running Finance pref)",
}

func welcomeMessage(name string) string {
	if name == "" {
		name = "Future Scholar"
	}
	return "Welcome to *Dashboard Visa Business*! 🎓✈️\n" +
		fmt.Sprintf("Hi %s, we are here to help you study abroad.\n\n", name) +
		"Select your dream destination:\n" +
		"1. Canada 🇨🇦\n" +
		"2. UK 🇬🇧\n" +
		"3. USA 🇺🇸\n" +
		"4. Australia 🇦🇺\n\n" +
		"Type *Status* to check your application.\n" +
		"Type *Apply* to start your process."
}

func statusMessage(view students.ProfileView) string {
	name := view.Name
	if name == "" {
		name = "Not Provided"
	}
	country := view.Country
	if country == "" {
		country = "Not Selected"
	}
	return "📂 *Application Status*\n" +
		fmt.Sprintf("Name: %s\n", name) +
		fmt.Sprintf("Country: %s\n", country) +
		fmt.Sprintf("Current Status: *%s*\n\n", view.Status) +
		"Need to update documents? Just send them here."
}

func nameSavedMessage(name string) string {
	return fmt.Sprintf("Thanks %s! Your profile is updated. An agent will review your file shortly.", name)
}

func docsMessage(country string) string {
	return fmt.Sprintf("Great choice! Here are the documents required for %s:\n\n", country) +
		requiredDocs[country] + "\n\n" +
		"Type *Apply* to proceed."
}
