package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qualivoice/qualivoice/internal/models"
	"github.com/qualivoice/qualivoice/internal/util"
)

// webhookRequest is the call initiation payload from the dialer.
type webhookRequest struct {
	CallID      string `json:"call_id,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

// transcriptRequest carries one customer utterance. The flat "transcript"
// field is the primary shape; the nested channel block accepts Deepgram's
// webhook format directly.
type transcriptRequest struct {
	CallID     string `json:"call_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	IsBot      bool   `json:"is_bot,omitempty"`
	Speaker    string `json:"speaker,omitempty"`
	Channel    *struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel,omitempty"`
}

// text resolves the utterance from whichever shape the caller used.
func (t *transcriptRequest) text() string {
	if t.Transcript != "" {
		return t.Transcript
	}
	if t.Channel != nil && len(t.Channel.Alternatives) > 0 {
		return t.Channel.Alternatives[0].Transcript
	}
	return ""
}

// voiceEventRequest carries a voice platform event or a DTMF digit.
type voiceEventRequest struct {
	EventType string `json:"event_type,omitempty"`
	Digit     string `json:"digit,omitempty"`
}

// inboundSIPRequest is the dispatch-rule callback for an inbound SIP call.
type inboundSIPRequest struct {
	SIPURI      string `json:"sip_uri,omitempty"`
	CallID      string `json:"call_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webhookHandler: processing call initiation", "path", r.URL.Path)

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.InitializeCall(r.Context(), req.CallID, req.PhoneNumber)
	if err != nil {
		slog.Error("Server.webhookHandler: call initialization failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to initialize call"))
		return
	}

	slog.Info("Server.webhookHandler: call initialized", "callID", result.CallID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]any{
		"call_id":  result.CallID,
		"sip_uri":  util.SIPURIForCallID(result.CallID, s.sipDomain),
		"greeting": result.BotResponse,
	}))
}

func (s *Server) inboundSIPHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req inboundSIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.inboundSIPHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	callID := req.CallID
	if callID == "" && req.SIPURI != "" {
		callID = util.ExtractCallIDFromSIPURI(req.SIPURI)
	}
	if callID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing call_id or sip_uri"))
		return
	}

	result, err := s.engine.InitializeCall(r.Context(), callID, req.PhoneNumber)
	if err != nil {
		slog.Error("Server.inboundSIPHandler: call initialization failed", "error", err, "callID", callID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to initialize call"))
		return
	}

	slog.Info("Server.inboundSIPHandler: inbound call initialized", "callID", result.CallID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]any{
		"call_id":   result.CallID,
		"room_name": result.CallID,
	}))
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	callID := r.PathValue("call_id")

	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.transcriptHandler: failed to decode JSON", "error", err, "callID", callID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if callID == "" {
		callID = req.CallID
	}

	// The pipeline echoes the bot's own TTS back through transcription.
	if req.IsBot || strings.Contains(strings.ToLower(req.Speaker), "bot") {
		slog.Debug("Server.transcriptHandler: skipping bot voice transcript", "callID", callID)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{"skipped": true}))
		return
	}

	release := s.locks.acquire(callID)
	defer release()

	result, err := s.engine.ProcessTurn(r.Context(), callID, req.text())
	if err != nil {
		writeTurnError(w, callID, err)
		return
	}

	slog.Info("Server.transcriptHandler: turn processed", "callID", callID, "next_state", result.NextState)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) listTranscriptsHandler(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("call_id")
	entries, err := s.engine.Transcripts(r.Context(), callID)
	if err != nil {
		writeTurnError(w, callID, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

func (s *Server) voiceEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	callID := r.PathValue("call_id")

	var req voiceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.voiceEventsHandler: failed to decode JSON", "error", err, "callID", callID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.EventType == "" && req.Digit == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing event_type or digit"))
		return
	}

	release := s.locks.acquire(callID)
	defer release()

	var err error
	if req.Digit != "" {
		err = s.engine.RecordDTMF(r.Context(), callID, req.Digit)
	} else {
		err = s.engine.HandleVoiceEvent(r.Context(), callID, req.EventType)
	}
	if err != nil {
		writeTurnError(w, callID, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// writeTurnError maps engine errors onto HTTP statuses: validation failures
// are the caller's fault, unknown calls are 404, everything else is a 500.
func writeTurnError(w http.ResponseWriter, callID string, err error) {
	switch {
	case errors.Is(err, models.ErrCallNotFound):
		slog.Warn("api: call not found", "callID", callID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Call not found"))
	case errors.Is(err, models.ErrEmptyCallID), errors.Is(err, models.ErrEmptyTranscript):
		slog.Warn("api: invalid request", "callID", callID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error("api: turn processing failed", "callID", callID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process request"))
	}
}
