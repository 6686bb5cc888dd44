package models

import "testing"

func TestIsValidConversationState(t *testing.T) {
	valid := []ConversationState{
		StateGreeting, StateQualification, StateBillResponsibility, StateDebtAmount,
		StateCardCount, StatePaymentStatus, StateEmployment, StateMonthlyPayment,
		StateQualificationComplete, StateIntentCheck, StateObjectionHandling,
		StateTransfer, StateClosing, StateEnded,
	}
	for _, s := range valid {
		if !IsValidConversationState(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []ConversationState{"", "bogus", "GREETING"} {
		if IsValidConversationState(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !StateEnded.IsTerminal() {
		t.Error("ended should be terminal")
	}
	if StateClosing.IsTerminal() || StateTransfer.IsTerminal() {
		t.Error("closing and transfer are not terminal; they render before ending")
	}
}

func TestCallStateCanTransitionTo(t *testing.T) {
	tests := []struct {
		from CallState
		to   CallState
		want bool
	}{
		{CallStateInitiated, CallStateActive, true},
		{CallStateActive, CallStateEnded, true},
		{CallStateActive, CallStateFailed, true},
		{CallStateEnded, CallStateActive, false},
		{CallStateActive, CallStateInitiated, false},
		{CallStateActive, CallStateActive, true},
		{CallStateEnded, CallStateFailed, true},
		{"bogus", CallStateActive, false},
		{CallStateActive, "bogus", false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSetCallStateRejectsBackwardTransition(t *testing.T) {
	record := CallRecord{CallID: "call_x", CallState: CallStateEnded}
	if err := record.SetCallState(CallStateActive); err == nil {
		t.Error("expected backward lifecycle transition to fail")
	}
	if record.CallState != CallStateEnded {
		t.Errorf("failed transition mutated the record: %s", record.CallState)
	}
}

func TestSetCallStateAdvances(t *testing.T) {
	record := CallRecord{CallID: "call_x", CallState: CallStateInitiated}
	if err := record.SetCallState(CallStateActive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.CallState != CallStateActive {
		t.Errorf("expected active, got %s", record.CallState)
	}
	if err := record.SetCallState(CallStateEnded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIResponseEnvelopes(t *testing.T) {
	ok := Success(map[string]string{"k": "v"})
	if ok.Status != string(APIStatusOK) || ok.Result == nil {
		t.Errorf("unexpected success envelope: %+v", ok)
	}
	bad := Error("boom")
	if bad.Status != "error" || bad.Message != "boom" {
		t.Errorf("unexpected error envelope: %+v", bad)
	}
}
