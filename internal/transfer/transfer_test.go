package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/qualivoice/qualivoice/internal/models"
)

func sampleHandoff() models.HandoffRequest {
	amount := 15000.0
	return models.HandoffRequest{
		CallID:      "call_abc123",
		PhoneNumber: "+15551234567",
		Profile: models.CustomerProfile{
			CallID:    "call_abc123",
			FirstName: "John",
			LastName:  "Smith",
			DebtInfo:  models.DebtInfo{TotalAmount: &amount},
		},
		Verdict: models.VerdictQualified,
	}
}

type recordingNotifier struct {
	calls []models.HandoffRequest
	err   error
}

func (r *recordingNotifier) NotifyHandoff(ctx context.Context, req models.HandoffRequest) error {
	r.calls = append(r.calls, req)
	return r.err
}

func TestDispatcherFansOut(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	d := NewDispatcher(first, second)

	if err := d.NotifyHandoff(context.Background(), sampleHandoff()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first.calls) != 1 || len(second.calls) != 1 {
		t.Errorf("expected both notifiers called once, got %d and %d", len(first.calls), len(second.calls))
	}
}

func TestDispatcherContinuesPastFailures(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("sms gateway down")}
	healthy := &recordingNotifier{}
	d := NewDispatcher(failing, healthy)

	err := d.NotifyHandoff(context.Background(), sampleHandoff())
	if err == nil {
		t.Fatal("expected joined error from failing channel")
	}
	if len(healthy.calls) != 1 {
		t.Error("expected healthy channel to still be notified")
	}
}

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var got models.HandoffRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	if err := n.NotifyHandoff(context.Background(), sampleHandoff()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.CallID != "call_abc123" {
		t.Errorf("expected call ID in payload, got %q", got.CallID)
	}
	if got.Profile.FirstName != "John" {
		t.Errorf("expected profile in payload, got %+v", got.Profile)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	if err := n.NotifyHandoff(context.Background(), sampleHandoff()); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

type mockMessageCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (m *mockMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.params = params
	return &twilioApi.ApiV2010Message{}, m.err
}

func TestSMSNotifierSendsToAgent(t *testing.T) {
	mock := &mockMessageCreator{}
	n := &SMSNotifier{api: mock, from: "+15550000000", agentPhone: "+15559999999"}

	if err := n.NotifyHandoff(context.Background(), sampleHandoff()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mock.params == nil {
		t.Fatal("expected message to be created")
	}
	if *mock.params.To != "+15559999999" {
		t.Errorf("expected agent phone, got %q", *mock.params.To)
	}
	body := *mock.params.Body
	if !strings.Contains(body, "John Smith") || !strings.Contains(body, "$15000") {
		t.Errorf("expected lead summary in SMS body, got %q", body)
	}
}

func TestSMSNotifierSendFailure(t *testing.T) {
	mock := &mockMessageCreator{err: errors.New("twilio unavailable")}
	n := &SMSNotifier{api: mock, from: "+15550000000", agentPhone: "+15559999999"}

	if err := n.NotifyHandoff(context.Background(), sampleHandoff()); err == nil {
		t.Fatal("expected error when send fails")
	}
}

func TestNewSMSNotifierMissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("AGENT_PHONE_NUMBER", "")
	if _, err := NewSMSNotifier(); err == nil {
		t.Error("expected error with missing credentials")
	}
}
