package flow

import (
	"testing"

	"github.com/qualivoice/qualivoice/internal/models"
)

func TestMergeNamesOverwriteAnywhere(t *testing.T) {
	profile := models.CustomerProfile{FirstName: "Jon"}
	points := Merge(&profile, models.StateCardCount, models.Extraction{FirstName: "John", LastName: "Smith"})

	if profile.FirstName != "John" || profile.LastName != "Smith" {
		t.Errorf("expected names merged, got %q %q", profile.FirstName, profile.LastName)
	}
	if points["first_name"] != "John" {
		t.Errorf("expected first_name data point, got %v", points)
	}
}

func TestMergeStateScopedDebtFields(t *testing.T) {
	profile := models.CustomerProfile{}

	// In debt_amount state the amount lands in the profile.
	Merge(&profile, models.StateDebtAmount, models.Extraction{DebtAmount: floatPtr(15000)})
	if profile.DebtInfo.TotalAmount == nil || *profile.DebtInfo.TotalAmount != 15000 {
		t.Fatalf("expected total_amount 15000, got %v", profile.DebtInfo.TotalAmount)
	}

	// A dollar figure heard during card_count must not touch the total.
	Merge(&profile, models.StateCardCount, models.Extraction{DebtAmount: floatPtr(99)})
	if *profile.DebtInfo.TotalAmount != 15000 {
		t.Errorf("out-of-scope extraction overwrote total_amount: %v", *profile.DebtInfo.TotalAmount)
	}
}

func TestMergeStickySlots(t *testing.T) {
	profile := models.CustomerProfile{}
	Merge(&profile, models.StateDebtAmount, models.Extraction{DebtAmount: floatPtr(10000)})

	// An empty turn in the same state leaves the slot alone.
	Merge(&profile, models.StateDebtAmount, models.Extraction{})
	if profile.DebtInfo.TotalAmount == nil || *profile.DebtInfo.TotalAmount != 10000 {
		t.Fatalf("empty extraction cleared a filled slot: %v", profile.DebtInfo.TotalAmount)
	}

	// A newer non-empty value overwrites.
	Merge(&profile, models.StateDebtAmount, models.Extraction{DebtAmount: floatPtr(12000)})
	if *profile.DebtInfo.TotalAmount != 12000 {
		t.Errorf("expected overwrite to 12000, got %v", *profile.DebtInfo.TotalAmount)
	}
}

func TestMergeAllDebtInfoSlots(t *testing.T) {
	profile := models.CustomerProfile{}
	Merge(&profile, models.StateCardCount, models.Extraction{CardCount: intPtr(4)})
	Merge(&profile, models.StatePaymentStatus, models.Extraction{PaymentStatus: "behind"})
	Merge(&profile, models.StateEmployment, models.Extraction{EmploymentStatus: "employed"})
	Merge(&profile, models.StateMonthlyPayment, models.Extraction{MonthlyPayment: floatPtr(450)})

	if profile.DebtInfo.CardCount == nil || *profile.DebtInfo.CardCount != 4 {
		t.Errorf("card count not merged: %v", profile.DebtInfo.CardCount)
	}
	if profile.DebtInfo.PaymentStatus != "behind" {
		t.Errorf("payment status not merged: %q", profile.DebtInfo.PaymentStatus)
	}
	if profile.DebtInfo.EmploymentStatus != "employed" {
		t.Errorf("employment status not merged: %q", profile.DebtInfo.EmploymentStatus)
	}
	if profile.DebtInfo.MonthlyPayment == nil || *profile.DebtInfo.MonthlyPayment != 450 {
		t.Errorf("monthly payment not merged: %v", profile.DebtInfo.MonthlyPayment)
	}
}

func TestMergeObjectionsAppendOnly(t *testing.T) {
	profile := models.CustomerProfile{}

	// Objection text appends regardless of state.
	Merge(&profile, models.StateDebtAmount, models.Extraction{Objection: "not_interested"})
	Merge(&profile, models.StateIntentCheck, models.Extraction{Objection: "spouse_consultation"})
	Merge(&profile, models.StateGreeting, models.Extraction{})

	want := []string{"not_interested", "spouse_consultation"}
	if len(profile.Objections) != len(want) {
		t.Fatalf("expected %d objections, got %v", len(want), profile.Objections)
	}
	for i, o := range want {
		if profile.Objections[i] != o {
			t.Errorf("objection %d: expected %q, got %q", i, o, profile.Objections[i])
		}
	}
}

func TestMergeIntentConfirmation(t *testing.T) {
	profile := models.CustomerProfile{}
	Merge(&profile, models.StateIntentCheck, models.Extraction{IntentConfirmed: boolPtr(true)})
	if !profile.IntentVerified {
		t.Error("expected intent_verified set from intent_check turn")
	}

	// Out of scope, the flag is untouched.
	Merge(&profile, models.StateGreeting, models.Extraction{IntentConfirmed: boolPtr(false)})
	if !profile.IntentVerified {
		t.Error("out-of-scope intent extraction cleared the flag")
	}
}

func TestMergeBillFieldsShareTwoStateScope(t *testing.T) {
	// Both qualification and bill_responsibility probe who handles the
	// bills, so either state fills any of the four bill fields.
	profile := models.CustomerProfile{}
	Merge(&profile, models.StateBillResponsibility, models.Extraction{HandlesBills: boolPtr(true)})
	if profile.HandlesBills == nil || !*profile.HandlesBills {
		t.Error("handles_bills heard in bill_responsibility was dropped")
	}

	profile = models.CustomerProfile{}
	Merge(&profile, models.StateQualification, models.Extraction{
		CallTransferAccepted: boolPtr(true),
		BillHandlerName:      "Mary",
		CallbackTime:         "after six",
	})
	if profile.CallTransferAccepted == nil || !*profile.CallTransferAccepted {
		t.Error("call_transfer_accepted heard in qualification was dropped")
	}
	if profile.BillHandlerName != "Mary" || profile.CallbackTime != "after six" {
		t.Errorf("bill handler fields not merged in qualification: %q %q",
			profile.BillHandlerName, profile.CallbackTime)
	}

	// Outside the two-state scope they stay out of the profile.
	profile = models.CustomerProfile{}
	Merge(&profile, models.StateDebtAmount, models.Extraction{HandlesBills: boolPtr(true)})
	if profile.HandlesBills != nil {
		t.Error("handles_bills merged outside its scope")
	}
}

func TestMergeBillResponsibilityFields(t *testing.T) {
	profile := models.CustomerProfile{}
	Merge(&profile, models.StateBillResponsibility, models.Extraction{
		BillHandlerName:      "Mary",
		CallTransferAccepted: boolPtr(true),
		CallbackTime:         "tomorrow morning",
	})
	if profile.BillHandlerName != "Mary" {
		t.Errorf("bill handler not merged: %q", profile.BillHandlerName)
	}
	if profile.CallTransferAccepted == nil || !*profile.CallTransferAccepted {
		t.Error("call_transfer_accepted not merged")
	}
	if profile.CallbackTime != "tomorrow morning" {
		t.Errorf("callback time not merged: %q", profile.CallbackTime)
	}
}
