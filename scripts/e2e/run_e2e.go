// Package main drives the WhatsApp chatbot flow end to end against a running API.
//
// Each scenario posts signed WhatsApp webhook payloads for a throwaway number,
// then polls the dashboard endpoints until the expected lead state and bot
// replies show up.
//
// Usage:
//
//	API_BASE_URL=... WHATSAPP_APP_SECRET=... go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=... WHATSAPP_APP_SECRET=... go run scripts/e2e/run_e2e.go apply-flow   # runs one
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxWaitSecs  = 30
	pollInterval = 2 * time.Second
)

var (
	apiBase   string
	appSecret string
	client    = &http.Client{Timeout: 15 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	phone  string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

type lead struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Country   string `json:"country"`
	Status    string `json:"status"`
	Student   struct {
		Name       string `json:"name"`
		WhatsAppID string `json:"whatsapp_id"`
	} `json:"student"`
}

type historyEntry struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// testPhone returns a unique number so scenarios never share a student.
func testPhone() string {
	var b strings.Builder
	b.WriteString("92300")
	for _, r := range uuid.NewString() {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() == 12 {
			break
		}
	}
	for b.Len() < 12 {
		b.WriteByte('0')
	}
	return b.String()
}

func sendWhatsApp(phone, text string) error {
	payload := map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"id": "e2e",
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"contacts":          []map[string]interface{}{{"profile": map[string]string{"name": "E2E Student"}, "wa_id": phone}},
					"messages": []map[string]interface{}{{
						"from":      phone,
						"id":        "wamid.e2e-" + uuid.NewString(),
						"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
						"type":      "text",
						"text":      map[string]string{"body": text},
					}},
				},
			}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, apiBase+"/api/whatsapp/webhook", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if appSecret != "" {
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(body)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func getJSON(path string, out interface{}) error {
	resp, err := client.Get(apiBase + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func findLead(phone string) (*lead, error) {
	var items []lead
	if err := getJSON("/api/leads/", &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Student.WhatsAppID == phone {
			return &items[i], nil
		}
	}
	return nil, nil
}

// waitForLead polls until the lead for phone satisfies ok.
func waitForLead(phone string, ok func(*lead) bool) (*lead, error) {
	deadline := time.Now().Add(maxWaitSecs * time.Second)
	for time.Now().Before(deadline) {
		l, err := findLead(phone)
		if err != nil {
			return nil, err
		}
		if l != nil && ok(l) {
			return l, nil
		}
		time.Sleep(pollInterval)
	}
	return nil, fmt.Errorf("lead for %s not ready after %ds", phone, maxWaitSecs)
}

// waitForReply polls the history until a bot message containing want appears.
func waitForReply(studentID int64, want string) (string, error) {
	deadline := time.Now().Add(maxWaitSecs * time.Second)
	for time.Now().Before(deadline) {
		var history []historyEntry
		if err := getJSON(fmt.Sprintf("/api/leads/%d/history", studentID), &history); err != nil {
			return "", err
		}
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Sender == "bot" && strings.Contains(history[i].Message, want) {
				return history[i].Message, nil
			}
		}
		time.Sleep(pollInterval)
	}
	return "", fmt.Errorf("no bot reply containing %q after %ds", want, maxWaitSecs)
}

func send(t *T, text string) bool {
	fmt.Printf("  -> %q\n", text)
	if err := sendWhatsApp(t.phone, text); err != nil {
		t.fatalf("send %q: %v", text, err)
		return false
	}
	return true
}

func scenarioCountrySelection(t *T) {
	if !send(t, "Canada") {
		return
	}
	l, err := waitForLead(t.phone, func(l *lead) bool { return l.Country == "Canada" })
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("lead created with country", l.Country == "Canada")
	t.check("lead starts as new_lead", l.Status == "new_lead")
}

func scenarioApplyFlow(t *T) {
	if !send(t, "Canada") {
		return
	}
	l, err := waitForLead(t.phone, func(*lead) bool { return true })
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	if !send(t, "apply") {
		return
	}
	_, err = waitForReply(l.StudentID, "Full Name")
	t.check("apply asks for full name", err == nil)

	if !send(t, "Name: ayesha khan") {
		return
	}
	l, err = waitForLead(t.phone, func(l *lead) bool { return l.Student.Name == "Ayesha Khan" })
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("name saved title-cased", l.Student.Name == "Ayesha Khan")

	if !send(t, "status") {
		return
	}
	reply, err := waitForReply(l.StudentID, "Ayesha Khan")
	t.check("status reply mentions name", err == nil)
	t.check("status reply mentions country", strings.Contains(reply, "Canada"))
}

func scenarioApplyWithoutCountry(t *T) {
	if !send(t, "hi") || !send(t, "apply") {
		return
	}
	// Apply without a country never creates a lead.
	time.Sleep(pollInterval)
	l, err := findLead(t.phone)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("no lead without a country", l == nil)
}

func scenarioBooking(t *T) {
	if !send(t, "UK") {
		return
	}
	l, err := waitForLead(t.phone, func(*lead) bool { return true })
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	if !send(t, "book") {
		return
	}
	_, err = waitForReply(l.StudentID, "Book an Appointment")
	t.check("book prompt sent", err == nil)

	if !send(t, "Date: Monday 3pm") {
		return
	}
	_, err = waitForReply(l.StudentID, "Appointment Confirmed")
	t.check("booking confirmed", err == nil)

	var appts []map[string]interface{}
	if err := getJSON(fmt.Sprintf("/api/students/%d/appointments", l.StudentID), &appts); err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("appointment recorded", len(appts) == 1)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	appSecret = os.Getenv("WHATSAPP_APP_SECRET")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"country-selection", scenarioCountrySelection},
		{"apply-flow", scenarioApplyFlow},
		{"apply-without-country", scenarioApplyWithoutCountry},
		{"booking", scenarioBooking},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed, totalFailed := 0, 0
	results := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}
		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{phone: testPhone()}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed
		status := "ok"
		if t.failed > 0 {
			status = "FAILED"
		}
		results = append(results, fmt.Sprintf("  %-6s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("RESULTS\n")
	fmt.Printf("========================================\n")
	for _, r := range results {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)
	if totalFailed > 0 {
		os.Exit(1)
	}
}
