package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qualivoice/qualivoice/internal/livekit"
	"github.com/qualivoice/qualivoice/internal/models"
	"github.com/qualivoice/qualivoice/internal/nlu"
	"github.com/qualivoice/qualivoice/internal/scripts"
	"github.com/qualivoice/qualivoice/internal/store"
	"github.com/qualivoice/qualivoice/internal/util"
)

// VoicePlatform is the outbound voice surface the engine speaks through.
// The LiveKit client satisfies it; tests use a mock.
type VoicePlatform interface {
	CreateRoom(ctx context.Context, roomName string) error
	RoomExists(ctx context.Context, roomName string) (bool, error)
	CloseRoom(ctx context.Context, roomName string) error
	ConfigureVoicePipeline(ctx context.Context, roomName, callID string) error
	SpeakText(ctx context.Context, roomName, text string) error
	AddSIPParticipant(ctx context.Context, roomName, sipURI string) error
}

// HandoffTrigger receives the qualified-lead payload when the engine computes
// transfer as the next state. Invoked exactly once per call.
type HandoffTrigger interface {
	NotifyHandoff(ctx context.Context, req models.HandoffRequest) error
}

// Voice event types the engine reacts to by ending the call.
const (
	VoiceEventCallEnded               = "call_ended"
	VoiceEventParticipantDisconnected = "participant_disconnected"
)

// Engine drives the qualification dialogue. Each inbound transcript is an
// independent unit of work: state is loaded from the record store, advanced,
// and written back; nothing lives in memory between turns.
type Engine struct {
	store    store.Store
	analyzer nlu.Analyzer
	voice    VoicePlatform
	handoff  HandoffTrigger
	now      func() time.Time
}

// NewEngine creates a conversation engine over its collaborators. handoff
// may be nil when no transfer channel is configured.
func NewEngine(st store.Store, analyzer nlu.Analyzer, voice VoicePlatform, handoff HandoffTrigger) *Engine {
	return &Engine{
		store:    st,
		analyzer: analyzer,
		voice:    voice,
		handoff:  handoff,
		now:      time.Now,
	}
}

// InitializeCall creates the call record and room for a new inbound call and
// speaks the greeting. An empty callID gets a generated one; the room is
// named after the call ID.
func (e *Engine) InitializeCall(ctx context.Context, callID, phoneNumber string) (models.TurnResult, error) {
	if callID == "" {
		callID = util.GenerateCallID()
	}
	now := e.now()

	record := models.CallRecord{
		CallID:       callID,
		CurrentState: models.StateGreeting,
		CallState:    models.CallStateInitiated,
		RoomName:     callID,
		PhoneNumber:  util.FormatPhoneNumberE164(phoneNumber),
		CreatedAt:    now,
		LastUpdate:   now,
	}
	profile := models.CustomerProfile{CallID: callID, LastUpdate: now}

	exists, err := e.voice.RoomExists(ctx, record.RoomName)
	if err != nil {
		slog.Warn("Engine.InitializeCall: room probe failed, attempting create anyway",
			"callID", callID, "error", err)
	}
	if !exists {
		if err := e.voice.CreateRoom(ctx, record.RoomName); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to create room for %s: %w", callID, err)
		}
	}
	if err := e.voice.ConfigureVoicePipeline(ctx, record.RoomName, callID); err != nil {
		slog.Warn("Engine.InitializeCall: voice pipeline setup failed",
			"callID", callID, "error", err)
	}

	greeting := scripts.Render(models.StateGreeting, profile)
	if err := record.SetCallState(models.CallStateActive); err != nil {
		return models.TurnResult{}, err
	}

	if err := e.store.SaveCall(ctx, record); err != nil {
		return models.TurnResult{}, err
	}
	if err := e.store.SaveProfile(ctx, profile); err != nil {
		return models.TurnResult{}, err
	}
	e.appendBotTranscript(ctx, callID, greeting)

	e.speak(ctx, record.RoomName, greeting)
	slog.Info("Engine.InitializeCall: call initialized", "callID", callID, "room", record.RoomName)

	return models.TurnResult{
		CallID:      callID,
		NextState:   models.StateGreeting,
		BotResponse: greeting,
	}, nil
}

// ProcessTurn handles one customer transcript: extract, merge, transition,
// render, persist, speak. NLU failures degrade to an empty extraction so the
// dialogue keeps moving; an unknown call ID is reported without mutating
// anything.
func (e *Engine) ProcessTurn(ctx context.Context, callID, transcript string) (models.TurnResult, error) {
	if callID == "" {
		return models.TurnResult{}, models.ErrEmptyCallID
	}
	if strings.TrimSpace(transcript) == "" {
		return models.TurnResult{}, models.ErrEmptyTranscript
	}

	record, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return models.TurnResult{}, err
	}
	if record == nil {
		return models.TurnResult{}, models.ErrCallNotFound
	}
	profile, err := e.store.GetProfile(ctx, callID)
	if err != nil {
		return models.TurnResult{}, err
	}
	if profile == nil {
		profile = &models.CustomerProfile{CallID: callID}
	}

	extraction, err := e.analyzer.Analyze(ctx, record.CurrentState, transcript)
	if err != nil {
		slog.Error("Engine.ProcessTurn: NLU extraction failed, continuing with empty extraction",
			"callID", callID, "state", record.CurrentState, "error", err)
		extraction = models.Extraction{}
	}

	stateBefore := record.CurrentState
	objectionBefore := record.ObjectionType
	dataPoints := Merge(profile, stateBefore, extraction)

	if extraction.ObjectionDetected {
		// A repeated objection while already handling one keeps the original
		// resume target.
		if stateBefore != models.StateObjectionHandling {
			profile.PreviousState = stateBefore
		}
		if extraction.Objection != "" {
			record.ObjectionType = extraction.Objection
		}
		slog.Info("Engine.ProcessTurn: objection interrupt",
			"callID", callID, "objection", extraction.Objection, "interrupted_state", stateBefore)
	}

	// The logged question is the one the customer was answering, so it
	// renders from the objection type held before any new interrupt.
	next := Next(stateBefore, extraction, *profile)
	question := questionFor(stateBefore, objectionBefore, *profile)

	var botResponse string
	if next == models.StateObjectionHandling {
		botResponse = scripts.RenderObjection(record.ObjectionType, *profile)
	} else {
		botResponse = scripts.Render(next, *profile)
	}

	if next != models.StateObjectionHandling {
		record.ObjectionType = ""
	}
	record.CurrentState = next
	record.IntentVerified = profile.IntentVerified
	record.CallLogs = append(record.CallLogs, models.CallLogEntry{
		State:      stateBefore,
		Timestamp:  e.now(),
		Question:   question,
		Response:   transcript,
		DataPoints: dataPoints,
	})
	if next.IsTerminal() {
		if err := record.SetCallState(models.CallStateEnded); err != nil {
			return models.TurnResult{}, err
		}
	}

	e.appendCustomerTranscript(ctx, callID, transcript)
	if botResponse != "" {
		e.appendBotTranscript(ctx, callID, botResponse)
	}
	if err := e.store.SaveProfile(ctx, *profile); err != nil {
		return models.TurnResult{}, err
	}
	if err := e.store.SaveCall(ctx, *record); err != nil {
		return models.TurnResult{}, err
	}

	if botResponse != "" {
		e.speak(ctx, record.RoomName, botResponse)
	}
	if next == models.StateTransfer {
		e.triggerHandoff(ctx, *record, *profile)
	}
	if next.IsTerminal() {
		if err := e.voice.CloseRoom(ctx, record.RoomName); err != nil {
			slog.Warn("Engine.ProcessTurn: failed to close room",
				"callID", callID, "room", record.RoomName, "error", err)
		}
	}

	slog.Info("Engine.ProcessTurn: turn processed",
		"callID", callID, "from", stateBefore, "to", next)
	return models.TurnResult{
		CallID:         callID,
		NextState:      next,
		BotResponse:    botResponse,
		IntentVerified: profile.IntentVerified,
	}, nil
}

// RecordDTMF appends a keypad digit to the call record.
func (e *Engine) RecordDTMF(ctx context.Context, callID, digit string) error {
	if callID == "" {
		return models.ErrEmptyCallID
	}
	record, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return err
	}
	if record == nil {
		return models.ErrCallNotFound
	}
	record.DTMFLog = append(record.DTMFLog, models.DTMFEvent{Digit: digit, Timestamp: e.now()})
	return e.store.SaveCall(ctx, *record)
}

// HandleVoiceEvent records a voice platform event. Call-ending events close
// the room and finalize the lifecycle.
func (e *Engine) HandleVoiceEvent(ctx context.Context, callID, eventType string) error {
	if callID == "" {
		return models.ErrEmptyCallID
	}
	record, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return err
	}
	if record == nil {
		return models.ErrCallNotFound
	}
	record.VoiceEvents = append(record.VoiceEvents, models.VoiceEvent{EventType: eventType, Timestamp: e.now()})

	if eventType == VoiceEventCallEnded || eventType == VoiceEventParticipantDisconnected {
		record.CurrentState = models.StateEnded
		if err := record.SetCallState(models.CallStateEnded); err != nil {
			return err
		}
		if err := e.voice.CloseRoom(ctx, record.RoomName); err != nil {
			slog.Warn("Engine.HandleVoiceEvent: failed to close room",
				"callID", callID, "error", err)
		}
		slog.Info("Engine.HandleVoiceEvent: call ended", "callID", callID, "event", eventType)
	}
	return e.store.SaveCall(ctx, *record)
}

// Transcripts returns the call's transcript history in order. An unknown
// call ID is a not-found condition.
func (e *Engine) Transcripts(ctx context.Context, callID string) ([]models.TranscriptEntry, error) {
	if callID == "" {
		return nil, models.ErrEmptyCallID
	}
	record, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, models.ErrCallNotFound
	}
	return e.store.ListTranscripts(ctx, callID)
}

// questionFor renders the question the customer was answering this turn.
func questionFor(state models.ConversationState, objectionType string, profile models.CustomerProfile) string {
	if state == models.StateObjectionHandling {
		return scripts.RenderObjection(objectionType, profile)
	}
	return scripts.Render(state, profile)
}

// speak plays the response, absorbing upstream degradation. A lost utterance
// does not fail the turn; the state machine has already advanced and the
// next webhook keeps the dialogue going.
func (e *Engine) speak(ctx context.Context, roomName, text string) {
	if err := e.voice.SpeakText(ctx, roomName, text); err != nil {
		if errors.Is(err, livekit.ErrCircuitOpen) {
			slog.Warn("Engine.speak: voice platform circuit open, dropping utterance", "room", roomName)
			return
		}
		slog.Error("Engine.speak: playback failed", "room", roomName, "error", err)
	}
}

func (e *Engine) triggerHandoff(ctx context.Context, record models.CallRecord, profile models.CustomerProfile) {
	if e.handoff == nil {
		slog.Warn("Engine.triggerHandoff: no hand-off channel configured", "callID", record.CallID)
		return
	}
	req := models.HandoffRequest{
		CallID:      record.CallID,
		PhoneNumber: record.PhoneNumber,
		Profile:     profile,
		Verdict:     models.VerdictQualified,
		Timestamp:   e.now(),
	}
	if err := e.handoff.NotifyHandoff(ctx, req); err != nil {
		slog.Error("Engine.triggerHandoff: hand-off delivery failed",
			"callID", record.CallID, "error", err)
	}
}

func (e *Engine) appendCustomerTranscript(ctx context.Context, callID, text string) {
	entry := models.TranscriptEntry{
		CallID:    callID,
		Speaker:   models.SpeakerCustomer,
		Text:      text,
		Timestamp: e.now(),
	}
	if err := e.store.AppendTranscript(ctx, entry); err != nil {
		slog.Error("Engine.appendCustomerTranscript: append failed", "callID", callID, "error", err)
	}
}

func (e *Engine) appendBotTranscript(ctx context.Context, callID, text string) {
	entry := models.TranscriptEntry{
		CallID:    callID,
		Speaker:   models.SpeakerBot,
		Text:      text,
		Timestamp: e.now(),
	}
	if err := e.store.AppendTranscript(ctx, entry); err != nil {
		slog.Error("Engine.appendBotTranscript: append failed", "callID", callID, "error", err)
	}
}
