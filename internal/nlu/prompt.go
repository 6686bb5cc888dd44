package nlu

import (
	"fmt"
	"strings"

	"github.com/qualivoice/qualivoice/internal/models"
	"github.com/qualivoice/qualivoice/internal/scripts"
)

const basePrompt = `You are a data extraction assistant for a debt reduction qualification call.
You receive one customer utterance. Return a single JSON object containing only
the fields you are confident about; omit everything else. Never invent values.

Always check for objections first. If the customer pushes back, stalls, or
raises a concern, set "objection_detected" to true and set "objection" to the
best matching type from this list:
%s

If the customer's reply resolves a previously raised objection (agreement to
continue, acceptance of the explanation), set "objection_handled" to true. If
they repeat or escalate the objection, set "objection_handled" to false.

If the customer states their name, set "first_name" and "last_name".`

// stateInstructions maps each question state to the fields the answer is
// expected to carry. Extraction is scoped: an amount heard during card_count
// must not be treated as a debt total.
var stateInstructions = map[models.ConversationState]string{
	models.StateGreeting: `The bot just introduced itself. Extract the customer's name if given.`,
	models.StateQualification: `The customer was asked whether they handle the household bills.
Set "handles_bills" to true or false when the answer is clear.`,
	models.StateBillResponsibility: `The customer was asked who handles the bills and whether the
call can be transferred to that person. Set "bill_handler_name" when a name is
given, "call_transfer_accepted" to true or false when they answer, and
"callback_time" when they suggest a better time to call.`,
	models.StateDebtAmount: `The customer was asked for their total credit card debt.
Set "debt_amount" to the numeric dollar amount. "$15,000", "about 15 grand",
and "fifteen thousand" are all 15000.`,
	models.StateCardCount: `The customer was asked how many credit cards carry the balance.
Set "card_count" to the integer. Do not set any dollar amount fields.`,
	models.StatePaymentStatus: `The customer was asked whether they are current or behind on
payments. Set "payment_status" to a short phrase such as "current" or "behind".`,
	models.StateEmployment: `The customer was asked about their employment situation.
Set "employment_status" to a short phrase such as "employed", "self-employed",
"retired", or "unemployed".`,
	models.StateMonthlyPayment: `The customer was asked roughly how much they pay toward the
debt each month. Set "monthly_payment" to the numeric dollar amount.`,
	models.StateIntentCheck: `The customer was asked to confirm they want to speak with a
specialist. Set "intent_confirmed" to true or false when the answer is clear.`,
	models.StateObjectionHandling: `The bot just responded to the customer's objection. Decide
whether the objection is resolved and set "objection_handled" accordingly. If
they raise a new objection, set "objection_detected" and "objection" instead.`,
}

// buildSystemPrompt assembles the extraction prompt for the current state.
func buildSystemPrompt(state models.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, basePrompt, strings.Join(scripts.ObjectionTypes, ", "))
	if instructions, ok := stateInstructions[state]; ok {
		b.WriteString("\n\nCurrent question context: ")
		b.WriteString(instructions)
	}
	return b.String()
}
