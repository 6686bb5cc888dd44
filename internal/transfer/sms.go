package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/qualivoice/qualivoice/internal/models"
)

// messageCreator defines minimal interface for sending Twilio messages.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Opts holds configuration options for the Twilio SMS notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	AgentPhone string
}

// Option defines a configuration option for the Twilio SMS notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithAgentPhone sets the agent phone number that receives handoff alerts.
func WithAgentPhone(phone string) Option {
	return func(o *Opts) { o.AgentPhone = phone }
}

// SMSNotifier texts the on-shift agent when a qualified call is being
// transferred, so they have the customer's numbers before picking up.
type SMSNotifier struct {
	api        messageCreator
	from       string
	agentPhone string
}

// NewSMSNotifier creates an SMS notifier. Credentials fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, and
// AGENT_PHONE_NUMBER environment variables.
func NewSMSNotifier(opts ...Option) (*SMSNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.AgentPhone == "" {
		cfg.AgentPhone = os.Getenv("AGENT_PHONE_NUMBER")
	}
	slog.Debug("transfer.NewSMSNotifier: config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "",
		"AgentPhone_set", cfg.AgentPhone != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" || cfg.AgentPhone == "" {
		return nil, fmt.Errorf("from and agent phone numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)
	return &SMSNotifier{
		api:        client.Api,
		from:       cfg.From,
		agentPhone: cfg.AgentPhone,
	}, nil
}

// NotifyHandoff texts the agent a one-line summary of the qualified lead.
func (s *SMSNotifier) NotifyHandoff(ctx context.Context, req models.HandoffRequest) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.agentPhone)
	params.SetFrom(s.from)
	params.SetBody(formatHandoffSMS(req))

	if _, err := s.api.CreateMessage(params); err != nil {
		slog.Error("SMSNotifier.NotifyHandoff: send failed", "callID", req.CallID, "error", err)
		return fmt.Errorf("failed to send handoff SMS for %s: %w", req.CallID, err)
	}
	slog.Debug("SMSNotifier.NotifyHandoff: sent", "callID", req.CallID)
	return nil
}

func formatHandoffSMS(req models.HandoffRequest) string {
	name := req.Profile.FirstName
	if req.Profile.LastName != "" {
		name = fmt.Sprintf("%s %s", name, req.Profile.LastName)
	}
	if name == "" {
		name = "Unknown caller"
	}
	debt := "unknown debt"
	if req.Profile.DebtInfo.TotalAmount != nil {
		debt = fmt.Sprintf("$%.0f debt", *req.Profile.DebtInfo.TotalAmount)
	}
	return fmt.Sprintf("Incoming qualified transfer: %s, %s, %s. Call %s.",
		name, debt, req.Verdict, req.PhoneNumber)
}
