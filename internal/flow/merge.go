package flow

import (
	"fmt"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Merge applies one turn's extraction to the customer profile. Name fields
// overwrite whenever present. State-scoped answers are only written while the
// dialogue is in the state that asked for them, so a dollar figure heard
// during card_count never clobbers the debt total. The bill responsibility
// fields share a two-state scope: qualification and bill_responsibility both
// probe who handles the bills, so either state may fill them. Filled slots are sticky: a
// later turn can overwrite them with a new non-empty value but never clears
// them. Objection text appends to the profile's list regardless of state.
//
// It returns the data points written this turn, keyed by field name, for the
// call log.
func Merge(profile *models.CustomerProfile, state models.ConversationState, e models.Extraction) map[string]string {
	points := make(map[string]string)

	if e.FirstName != "" {
		profile.FirstName = e.FirstName
		points["first_name"] = e.FirstName
	}
	if e.LastName != "" {
		profile.LastName = e.LastName
		points["last_name"] = e.LastName
	}

	switch state {
	case models.StateQualification, models.StateBillResponsibility:
		if e.HandlesBills != nil {
			profile.HandlesBills = e.HandlesBills
			points["handles_bills"] = fmt.Sprintf("%t", *e.HandlesBills)
		}
		if e.BillHandlerName != "" {
			profile.BillHandlerName = e.BillHandlerName
			points["bill_handler_name"] = e.BillHandlerName
		}
		if e.CallTransferAccepted != nil {
			profile.CallTransferAccepted = e.CallTransferAccepted
			points["call_transfer_accepted"] = fmt.Sprintf("%t", *e.CallTransferAccepted)
		}
		if e.CallbackTime != "" {
			profile.CallbackTime = e.CallbackTime
			points["callback_time"] = e.CallbackTime
		}

	case models.StateDebtAmount:
		if e.DebtAmount != nil {
			profile.DebtInfo.TotalAmount = e.DebtAmount
			points["debt_amount"] = fmt.Sprintf("%g", *e.DebtAmount)
		}

	case models.StateCardCount:
		if e.CardCount != nil {
			profile.DebtInfo.CardCount = e.CardCount
			points["card_count"] = fmt.Sprintf("%d", *e.CardCount)
		}

	case models.StatePaymentStatus:
		if e.PaymentStatus != "" {
			profile.DebtInfo.PaymentStatus = e.PaymentStatus
			points["payment_status"] = e.PaymentStatus
		}

	case models.StateEmployment:
		if e.EmploymentStatus != "" {
			profile.DebtInfo.EmploymentStatus = e.EmploymentStatus
			points["employment_status"] = e.EmploymentStatus
		}

	case models.StateMonthlyPayment:
		if e.MonthlyPayment != nil {
			profile.DebtInfo.MonthlyPayment = e.MonthlyPayment
			points["monthly_payment"] = fmt.Sprintf("%g", *e.MonthlyPayment)
		}

	case models.StateIntentCheck:
		if e.IntentConfirmed != nil {
			profile.IntentVerified = *e.IntentConfirmed
			points["intent_confirmed"] = fmt.Sprintf("%t", *e.IntentConfirmed)
		}
	}

	if e.Objection != "" {
		profile.Objections = append(profile.Objections, e.Objection)
		points["objection"] = e.Objection
	}

	return points
}
