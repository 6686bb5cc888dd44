// Package scripts holds the fixed conversation script catalog.
//
// Rendering is a pure function of the conversation state and the customer
// profile; no I/O happens here. Objection responses live in objections.go.
package scripts

import (
	"fmt"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Render returns the outgoing message bound to a conversation state, with
// profile fields substituted where the template calls for them. Unknown states
// return an empty string; the engine treats that as nothing to say.
func Render(state models.ConversationState, profile models.CustomerProfile) string {
	switch state {
	case models.StateGreeting:
		return greeting
	case models.StateQualification:
		return qualificationIntro
	case models.StateBillResponsibility:
		return billResponsibilityQuestion
	case models.StateDebtAmount:
		return debtAmountQuestion
	case models.StateCardCount:
		return cardCountQuestion(profile)
	case models.StatePaymentStatus:
		return paymentStatusQuestion
	case models.StateEmployment:
		return employmentQuestion
	case models.StateMonthlyPayment:
		return monthlyPaymentQuestion(profile)
	case models.StateQualificationComplete:
		return qualificationComplete
	case models.StateIntentCheck:
		return intentCheck(profile)
	case models.StateTransfer:
		return transferMessage(profile)
	case models.StateClosing:
		return closingMessage(profile)
	default:
		return ""
	}
}

const greeting = "Good Day, My name is Rachel, and I'm calling from Consumer Services. " +
	"The reason I'm calling you today is that, according to our records, it looks like you still have " +
	"more than ten thousand dollars in credit card debt, and you have been making your monthly payments on time, right?"

const qualificationIntro = "Based on your track records of making payments and your situation, your total debts can be " +
	"reduced by 20-40% and you can be on a zero-interest monthly payment plan. For example, if you owe $20000, " +
	"you will save $8000 which you don't have to pay back ever, that's your savings. You will end up paying only " +
	"half of what you owe, that's it. Not only this, your monthly payments can be reduced by almost half as well. " +
	"And the best part is that you will be on a no interest payment plan so you can get out of these debts in no " +
	"time rather paying them for years and years."

const billResponsibilityQuestion = "So to give you more information about YOUR debt savings plan, I am sure you are " +
	"THE ONE who handles the bills and takes care of these CREDIT CARDS? Right!"

const debtAmountQuestion = "We have multiple options for 12 to 36 months wherein monthly payments can be very low. " +
	"So to let you know more about your lower monthly payment options, how much in total do you owe on all these " +
	"credit cards combined together? Just a ballpark number, like $15 Thousand, 20, 25 Thousand or more?"

func cardCountQuestion(profile models.CustomerProfile) string {
	if amt := profile.DebtInfo.TotalAmount; amt != nil {
		return fmt.Sprintf("And that's on how many cards you owe this %s balance? Just a ball park number like 3-4 5 or more", formatAmount(*amt))
	}
	return "And that's on how many cards you owe this balance? Just a ball park number like 3-4 5 or more"
}

const paymentStatusQuestion = "Are you current on your monthly payments or by any chance are you behind?"

const employmentQuestion = "Are you currently Employed/Self Employed or retired?"

func monthlyPaymentQuestion(profile models.CustomerProfile) string {
	if amt := profile.DebtInfo.TotalAmount; amt != nil {
		return fmt.Sprintf("How much are you paying monthly on these credit cards with the %s balance?", formatAmount(*amt))
	}
	return "How much are you paying monthly on these credit cards?"
}

const qualificationComplete = "OK, all right, thanks for your answers. This is the only information needed. " +
	"Now it's our turn to get you more information on lower monthly payment plans and savings. Please hold for a " +
	"moment while I gather the information needed to assist you. Once again, it's a free consultation with no " +
	"obligation. I will be right back with the details."

func intentCheck(profile models.CustomerProfile) string {
	di := profile.DebtInfo
	switch {
	case profile.FirstName != "" && di.TotalAmount != nil && di.MonthlyPayment != nil:
		cards := ""
		if di.CardCount != nil {
			cards = fmt.Sprintf("%d", *di.CardCount)
		}
		return fmt.Sprintf("%s, based on your %s balance across %s cards and monthly payment of %s, you may qualify "+
			"for our program. Would you be interested in options to reduce your debt and potentially save thousands "+
			"in interest by consolidating your payments?",
			profile.FirstName, formatAmount(*di.TotalAmount), cards, formatAmount(*di.MonthlyPayment))
	case di.TotalAmount != nil:
		return fmt.Sprintf("Based on your %s balance, you may qualify for our program. Would you be interested in "+
			"options to reduce your debt and potentially save thousands in interest?", formatAmount(*di.TotalAmount))
	default:
		return "Based on what you've shared, you may qualify for our program. Would you be interested in options " +
			"to reduce your debt and potentially save thousands in interest?"
	}
}

func transferMessage(profile models.CustomerProfile) string {
	if profile.FirstName != "" {
		return fmt.Sprintf("Great! I'll connect you with a debt counselor who can provide a free consultation, %s. "+
			"They'll explain all your options and potential savings. Please hold while I transfer you.", profile.FirstName)
	}
	return "Great! I'll connect you with a debt counselor who can provide a free consultation. " +
		"They'll explain all your options and potential savings. Please hold while I transfer you."
}

func closingMessage(profile models.CustomerProfile) string {
	if profile.FirstName != "" {
		return fmt.Sprintf("Thank you for your time, %s. Feel free to reach out if your situation changes, "+
			"and we'll be happy to help you then.", profile.FirstName)
	}
	return "Thank you for your time. Feel free to reach out if your situation changes, and we'll be happy to help you then."
}

// formatAmount renders a dollar figure without trailing zero cents.
func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("$%d", int64(amount))
	}
	return fmt.Sprintf("$%.2f", amount)
}
