package flow

import (
	"testing"

	"github.com/qualivoice/qualivoice/internal/models"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestNextLinearChain(t *testing.T) {
	tests := []struct {
		from models.ConversationState
		want models.ConversationState
	}{
		{models.StateGreeting, models.StateQualification},
		{models.StateCardCount, models.StatePaymentStatus},
		{models.StatePaymentStatus, models.StateEmployment},
		{models.StateEmployment, models.StateMonthlyPayment},
		{models.StateMonthlyPayment, models.StateQualificationComplete},
		{models.StateQualificationComplete, models.StateIntentCheck},
		{models.StateTransfer, models.StateEnded},
		{models.StateClosing, models.StateEnded},
	}
	for _, tt := range tests {
		got := Next(tt.from, models.Extraction{}, models.CustomerProfile{})
		if got != tt.want {
			t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestNextObjectionPreemptsEverything(t *testing.T) {
	states := []models.ConversationState{
		models.StateGreeting, models.StateQualification, models.StateBillResponsibility,
		models.StateDebtAmount, models.StateCardCount, models.StatePaymentStatus,
		models.StateEmployment, models.StateMonthlyPayment, models.StateQualificationComplete,
		models.StateIntentCheck, models.StateTransfer, models.StateClosing,
	}
	// Extraction also carries fields that would otherwise drive a transition.
	extracted := models.Extraction{
		ObjectionDetected: true,
		Objection:         "not_interested",
		HandlesBills:      boolPtr(true),
		IntentConfirmed:   boolPtr(true),
	}
	for _, state := range states {
		got := Next(state, extracted, models.CustomerProfile{})
		if got != models.StateObjectionHandling {
			t.Errorf("Next(%s) with objection = %s, want objection_handling", state, got)
		}
	}
}

func TestNextQualificationBranches(t *testing.T) {
	tests := []struct {
		name         string
		handlesBills *bool
		want         models.ConversationState
	}{
		{"handles bills", boolPtr(true), models.StateDebtAmount},
		{"does not handle bills", boolPtr(false), models.StateBillResponsibility},
		{"no answer", nil, models.StateBillResponsibility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(models.StateQualification, models.Extraction{HandlesBills: tt.handlesBills}, models.CustomerProfile{})
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextBillResponsibilityBranches(t *testing.T) {
	tests := []struct {
		name     string
		accepted *bool
		want     models.ConversationState
	}{
		{"transfer accepted", boolPtr(true), models.StateTransfer},
		{"transfer declined", boolPtr(false), models.StateClosing},
		{"no answer", nil, models.StateDebtAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(models.StateBillResponsibility, models.Extraction{CallTransferAccepted: tt.accepted}, models.CustomerProfile{})
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDebtThreshold(t *testing.T) {
	tests := []struct {
		name   string
		amount *float64
		want   models.ConversationState
	}{
		{"below threshold", floatPtr(5000), models.StateClosing},
		{"exactly at threshold", floatPtr(7000), models.StateCardCount},
		{"above threshold", floatPtr(15000), models.StateCardCount},
		{"no amount yet", nil, models.StateCardCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.CustomerProfile{DebtInfo: models.DebtInfo{TotalAmount: tt.amount}}
			got := Next(models.StateDebtAmount, models.Extraction{}, profile)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDebtThresholdUsesProfileNotExtraction(t *testing.T) {
	// A raw extraction above threshold must not rescue a profile below it.
	profile := models.CustomerProfile{DebtInfo: models.DebtInfo{TotalAmount: floatPtr(5000)}}
	got := Next(models.StateDebtAmount, models.Extraction{DebtAmount: floatPtr(20000)}, profile)
	if got != models.StateClosing {
		t.Errorf("got %s, want closing", got)
	}
}

func TestNextIntentCheck(t *testing.T) {
	tests := []struct {
		name      string
		confirmed *bool
		want      models.ConversationState
	}{
		{"confirmed", boolPtr(true), models.StateTransfer},
		{"declined", boolPtr(false), models.StateClosing},
		{"no answer", nil, models.StateClosing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(models.StateIntentCheck, models.Extraction{IntentConfirmed: tt.confirmed}, models.CustomerProfile{})
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextObjectionHandling(t *testing.T) {
	tests := []struct {
		name     string
		handled  *bool
		previous models.ConversationState
		want     models.ConversationState
	}{
		{"handled resumes previous state", boolPtr(true), models.StateDebtAmount, models.StateDebtAmount},
		{"handled without previous state falls back", boolPtr(true), "", models.StateQualification},
		{"not handled", boolPtr(false), models.StateDebtAmount, models.StateClosing},
		{"no signal", nil, models.StateDebtAmount, models.StateClosing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.CustomerProfile{PreviousState: tt.previous}
			got := Next(models.StateObjectionHandling, models.Extraction{ObjectionHandled: tt.handled}, profile)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextTerminalStateStays(t *testing.T) {
	got := Next(models.StateEnded, models.Extraction{ObjectionDetected: true}, models.CustomerProfile{})
	if got != models.StateEnded {
		t.Errorf("got %s, want ended", got)
	}
}

func TestNextUnrecognizedStateResets(t *testing.T) {
	got := Next("bogus_state", models.Extraction{}, models.CustomerProfile{})
	if got != models.StateGreeting {
		t.Errorf("got %s, want greeting", got)
	}
}
