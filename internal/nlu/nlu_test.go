package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/qualivoice/qualivoice/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func completionWith(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestAnalyze_DebtAmount(t *testing.T) {
	mock := &mockChatService{resp: completionWith(`{"debt_amount": 15000}`)}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}

	got, err := client.Analyze(context.Background(), models.StateDebtAmount, "about fifteen thousand I think")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.DebtAmount == nil || *got.DebtAmount != 15000 {
		t.Errorf("expected debt_amount 15000, got %v", got.DebtAmount)
	}
}

func TestAnalyze_ObjectionDetected(t *testing.T) {
	mock := &mockChatService{resp: completionWith(`{"objection_detected": true, "objection": "spouse_consultation"}`)}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}

	got, err := client.Analyze(context.Background(), models.StateQualification, "I need to talk to my wife first")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.ObjectionDetected {
		t.Error("expected objection_detected true")
	}
	if got.Objection != "spouse_consultation" {
		t.Errorf("expected objection spouse_consultation, got %q", got.Objection)
	}
}

func TestAnalyze_EmptyTranscript(t *testing.T) {
	client := &Client{chat: &mockChatService{}, model: openai.ChatModelGPT4oMini}
	_, err := client.Analyze(context.Background(), models.StateGreeting, "   ")
	if !errors.Is(err, models.ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestAnalyze_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}, model: openai.ChatModelGPT4oMini}
	_, err := client.Analyze(context.Background(), models.StateDebtAmount, "fifteen thousand")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestAnalyze_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}, model: openai.ChatModelGPT4oMini}
	_, err := client.Analyze(context.Background(), models.StateDebtAmount, "fifteen thousand")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestAnalyze_MalformedJSON(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("not json")}, model: openai.ChatModelGPT4oMini}
	_, err := client.Analyze(context.Background(), models.StateDebtAmount, "fifteen thousand")
	if err == nil || !strings.Contains(err.Error(), "failed to decode extraction") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestAnalyze_BackfillsAmountFromRegex(t *testing.T) {
	// Model returned an empty object; the regex parser should still find 5k.
	mock := &mockChatService{resp: completionWith(`{}`)}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}

	got, err := client.Analyze(context.Background(), models.StateDebtAmount, "around 5k total")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.DebtAmount == nil || *got.DebtAmount != 5000 {
		t.Errorf("expected backfilled debt_amount 5000, got %v", got.DebtAmount)
	}
}

func TestAnalyze_StateScopedPrompt(t *testing.T) {
	mock := &mockChatService{resp: completionWith(`{}`)}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}

	if _, err := client.Analyze(context.Background(), models.StateCardCount, "three cards"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mock.params.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(mock.params.Messages))
	}
	system := mock.params.Messages[0].OfSystem.Content.OfString.Value
	if !strings.Contains(system, "card_count") && !strings.Contains(system, "credit cards") {
		t.Errorf("expected card count instructions in system prompt, got %q", system)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"$15,000", 15000, true},
		{"about 15 grand", 15000, true},
		{"5k total", 5000, true},
		{"seven thousand", 0, false},
		{"between 10 and 15 thousand", 15000, true},
		{"I pay 450 a month", 450, true},
		{"no idea", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseAmount(%q) = (%v, %v), want (%v, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"3 cards", 3, true},
		{"I have three of them", 3, true},
		{"just one", 1, true},
		{"my phone is broken", 0, false},
		{"none of your business", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseCount(%q) = (%v, %v), want (%v, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}
