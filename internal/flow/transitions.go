// Package flow implements the conversation engine: the qualification state
// machine, the slot merge contract, and the per-turn orchestration that ties
// NLU extraction, script rendering, persistence, and voice playback together.
package flow

import (
	"log/slog"

	"github.com/qualivoice/qualivoice/internal/models"
)

// MinQualifyingDebtAmount is the debt threshold for routing to a specialist.
// Exactly this amount still qualifies.
const MinQualifyingDebtAmount = 7000

// Next computes the state that follows one customer turn. It is a pure
// function of the current state, the turn's extraction, and the accumulated
// profile; all persistence and side effects belong to the engine.
//
// A detected objection preempts every other rule. The engine is responsible
// for recording previous_state and objection_type around that interrupt.
func Next(state models.ConversationState, extracted models.Extraction, profile models.CustomerProfile) models.ConversationState {
	if state.IsTerminal() {
		return state
	}
	if extracted.ObjectionDetected {
		return models.StateObjectionHandling
	}

	switch state {
	case models.StateGreeting:
		return models.StateQualification

	case models.StateQualification:
		if extracted.HandlesBills != nil && *extracted.HandlesBills {
			return models.StateDebtAmount
		}
		return models.StateBillResponsibility

	case models.StateBillResponsibility:
		if extracted.CallTransferAccepted != nil {
			if *extracted.CallTransferAccepted {
				return models.StateTransfer
			}
			return models.StateClosing
		}
		return models.StateDebtAmount

	case models.StateDebtAmount:
		// The accumulated profile value decides, not the raw extraction.
		if profile.DebtInfo.TotalAmount != nil && *profile.DebtInfo.TotalAmount < MinQualifyingDebtAmount {
			return models.StateClosing
		}
		return models.StateCardCount

	case models.StateCardCount:
		return models.StatePaymentStatus

	case models.StatePaymentStatus:
		return models.StateEmployment

	case models.StateEmployment:
		return models.StateMonthlyPayment

	case models.StateMonthlyPayment:
		return models.StateQualificationComplete

	case models.StateQualificationComplete:
		return models.StateIntentCheck

	case models.StateIntentCheck:
		if extracted.IntentConfirmed != nil && *extracted.IntentConfirmed {
			return models.StateTransfer
		}
		return models.StateClosing

	case models.StateObjectionHandling:
		if extracted.ObjectionHandled != nil && *extracted.ObjectionHandled {
			if profile.PreviousState != "" {
				return profile.PreviousState
			}
			slog.Warn("flow.Next: resuming from objection with no previous_state, falling back to qualification")
			return models.StateQualification
		}
		return models.StateClosing

	case models.StateTransfer, models.StateClosing:
		return models.StateEnded

	default:
		slog.Warn("flow.Next: unrecognized state, resetting to greeting", "state", state)
		return models.StateGreeting
	}
}
