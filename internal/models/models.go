// Package models defines the core data structures for QualiVoice.
//
// It includes the per-call record, the accumulated customer profile, transcript
// and call-log entries, and the NLU extraction result shared across modules.
package models

import (
	"errors"
	"time"
)

// ConversationState identifies the engine's position in the qualification dialogue.
type ConversationState string

const (
	// StateGreeting is the opening message state for a new call.
	StateGreeting ConversationState = "greeting"
	// StateQualification presents the program pitch and asks about bill handling.
	StateQualification ConversationState = "qualification"
	// StateBillResponsibility confirms who in the household handles the bills.
	StateBillResponsibility ConversationState = "bill_responsibility"
	// StateDebtAmount asks for the total outstanding balance.
	StateDebtAmount ConversationState = "debt_amount"
	// StateCardCount asks how many cards carry the balance.
	StateCardCount ConversationState = "card_count"
	// StatePaymentStatus asks whether payments are current or behind.
	StatePaymentStatus ConversationState = "payment_status"
	// StateEmployment asks about employment status.
	StateEmployment ConversationState = "employment"
	// StateMonthlyPayment asks for the current monthly payment amount.
	StateMonthlyPayment ConversationState = "monthly_payment"
	// StateQualificationComplete plays the interstitial after all slots are filled.
	StateQualificationComplete ConversationState = "qualification_complete"
	// StateIntentCheck asks the customer to confirm interest.
	StateIntentCheck ConversationState = "intent_check"
	// StateObjectionHandling is the interrupt state entered on a detected objection.
	StateObjectionHandling ConversationState = "objection_handling"
	// StateTransfer hands the call to a human agent.
	StateTransfer ConversationState = "transfer"
	// StateClosing plays the wrap-up message for non-qualified calls.
	StateClosing ConversationState = "closing"
	// StateEnded is the terminal state; reachable only via transfer or closing.
	StateEnded ConversationState = "ended"
)

// IsValidConversationState reports whether s is one of the defined states.
func IsValidConversationState(s ConversationState) bool {
	switch s {
	case StateGreeting, StateQualification, StateBillResponsibility, StateDebtAmount,
		StateCardCount, StatePaymentStatus, StateEmployment, StateMonthlyPayment,
		StateQualificationComplete, StateIntentCheck, StateObjectionHandling,
		StateTransfer, StateClosing, StateEnded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the state ends the dialogue.
func (s ConversationState) IsTerminal() bool {
	return s == StateEnded
}

// CallState is the coarse call lifecycle, independent of the dialogue position.
type CallState string

const (
	// CallStateInitiated means the call record exists but no media is flowing yet.
	CallStateInitiated CallState = "initiated"
	// CallStateActive means the conversation is in progress.
	CallStateActive CallState = "active"
	// CallStateEnded means the call finished normally.
	CallStateEnded CallState = "ended"
	// CallStateFailed means the call terminated due to an error.
	CallStateFailed CallState = "failed"
)

// callStateRank orders lifecycle states; transitions only move forward.
var callStateRank = map[CallState]int{
	CallStateInitiated: 0,
	CallStateActive:    1,
	CallStateEnded:     2,
	CallStateFailed:    2,
}

// CanTransitionTo reports whether the lifecycle may move from s to next.
// The lifecycle never moves backward: initiated -> active -> ended|failed.
func (s CallState) CanTransitionTo(next CallState) bool {
	from, okFrom := callStateRank[s]
	to, okTo := callStateRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to >= from
}

// Speaker identifies the source of a transcript entry.
type Speaker string

const (
	// SpeakerCustomer marks an utterance from the caller.
	SpeakerCustomer Speaker = "customer"
	// SpeakerBot marks a rendered bot response.
	SpeakerBot Speaker = "bot"
)

// Error variables for the engine's failure taxonomy.
var (
	// ErrCallNotFound indicates an unknown call_id; no state is mutated.
	ErrCallNotFound = errors.New("call not found")
	// ErrEmptyCallID indicates a request missing the call identifier.
	ErrEmptyCallID = errors.New("call_id is required")
	// ErrEmptyTranscript indicates a transcript turn with no text.
	ErrEmptyTranscript = errors.New("transcript is required")
	// ErrInvalidCallState indicates a backward lifecycle transition was attempted.
	ErrInvalidCallState = errors.New("invalid call state transition")
)

// CallLogEntry is one turn record in the embedded, append-only call log.
type CallLogEntry struct {
	State      ConversationState `json:"state"`
	Timestamp  time.Time         `json:"timestamp"`
	Question   string            `json:"question"`
	Response   string            `json:"response"`
	DataPoints map[string]string `json:"data_points,omitempty"`
}

// DTMFEvent records a keypad digit received during the call.
type DTMFEvent struct {
	Digit     string    `json:"digit"`
	Timestamp time.Time `json:"timestamp"`
}

// VoiceEvent records a non-transcript voice platform event (speech start/end, etc).
type VoiceEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CallRecord is the durable per-call state document.
type CallRecord struct {
	CallID         string            `json:"call_id"`
	CurrentState   ConversationState `json:"current_state"`
	CallState      CallState         `json:"call_state"`
	RoomName       string            `json:"room_name,omitempty"`
	PhoneNumber    string            `json:"phone_number,omitempty"` // E.164
	ObjectionType  string            `json:"objection_type,omitempty"`
	IntentVerified bool              `json:"intent_verified"`
	CallLogs       []CallLogEntry    `json:"call_logs,omitempty"`
	DTMFLog        []DTMFEvent       `json:"dtmf_log,omitempty"`
	VoiceEvents    []VoiceEvent      `json:"voice_events,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastUpdate     time.Time         `json:"last_update"`
}

// SetCallState advances the lifecycle, enforcing forward-only transitions.
func (c *CallRecord) SetCallState(next CallState) error {
	if c.CallState != "" && !c.CallState.CanTransitionTo(next) {
		return ErrInvalidCallState
	}
	c.CallState = next
	return nil
}

// DebtInfo holds the nested qualification slots. Pointer fields distinguish
// "never answered" from zero values; once filled a slot is only ever replaced
// by a newer non-empty extraction, never cleared.
type DebtInfo struct {
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	CardCount        *int     `json:"card_count,omitempty"`
	PaymentStatus    string   `json:"payment_status,omitempty"`
	EmploymentStatus string   `json:"employment_status,omitempty"`
	MonthlyPayment   *float64 `json:"monthly_payment,omitempty"`
}

// CustomerProfile accumulates facts extracted from the conversation, keyed by call.
type CustomerProfile struct {
	CallID               string            `json:"call_id"`
	FirstName            string            `json:"first_name,omitempty"`
	LastName             string            `json:"last_name,omitempty"`
	HandlesBills         *bool             `json:"handles_bills,omitempty"`
	BillHandlerName      string            `json:"bill_handler_name,omitempty"`
	CallTransferAccepted *bool             `json:"call_transfer_accepted,omitempty"`
	CallbackTime         string            `json:"callback_time,omitempty"`
	DebtInfo             DebtInfo          `json:"debt_info"`
	Objections           []string          `json:"objections,omitempty"` // append-only
	IntentVerified       bool              `json:"intent_verified"`
	PreviousState        ConversationState `json:"previous_state,omitempty"`
	LastUpdate           time.Time         `json:"last_update"`
}

// TranscriptEntry is one immutable utterance in the append-only transcript log.
type TranscriptEntry struct {
	CallID    string    `json:"call_id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Extraction is the sparse NLU result for a single turn. Nil pointer fields and
// empty strings mean "not mentioned this turn".
type Extraction struct {
	FirstName            string   `json:"first_name,omitempty"`
	LastName             string   `json:"last_name,omitempty"`
	ObjectionDetected    bool     `json:"objection_detected,omitempty"`
	Objection            string   `json:"objection,omitempty"`
	ObjectionHandled     *bool    `json:"objection_handled,omitempty"`
	HandlesBills         *bool    `json:"handles_bills,omitempty"`
	BillHandlerName      string   `json:"bill_handler_name,omitempty"`
	CallTransferAccepted *bool    `json:"call_transfer_accepted,omitempty"`
	CallbackTime         string   `json:"callback_time,omitempty"`
	DebtAmount           *float64 `json:"debt_amount,omitempty"`
	CardCount            *int     `json:"card_count,omitempty"`
	PaymentStatus        string   `json:"payment_status,omitempty"`
	EmploymentStatus     string   `json:"employment_status,omitempty"`
	MonthlyPayment       *float64 `json:"monthly_payment,omitempty"`
	IntentConfirmed      *bool    `json:"intent_confirmed,omitempty"`
}

// TurnResult is returned to the transport layer after each processed transcript.
type TurnResult struct {
	CallID         string            `json:"call_id"`
	NextState      ConversationState `json:"current_state"`
	BotResponse    string            `json:"bot_response"`
	IntentVerified bool              `json:"intent_verified"`
}

// QualificationVerdict labels the outcome passed to the hand-off trigger.
type QualificationVerdict string

const (
	// VerdictQualified marks a customer routed to a human agent.
	VerdictQualified QualificationVerdict = "qualified"
)

// HandoffRequest is the payload delivered to hand-off collaborators when the
// engine computes transfer as the next state.
type HandoffRequest struct {
	CallID      string               `json:"call_id"`
	PhoneNumber string               `json:"phone_number"`
	Profile     CustomerProfile      `json:"customer_profile"`
	Verdict     QualificationVerdict `json:"qualification_status"`
	Timestamp   time.Time            `json:"timestamp"`
}
