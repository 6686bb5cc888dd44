package scripts

import (
	"strings"
	"testing"

	"github.com/qualivoice/qualivoice/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestRenderCoversEveryNonObjectionState(t *testing.T) {
	states := []models.ConversationState{
		models.StateGreeting, models.StateQualification, models.StateBillResponsibility,
		models.StateDebtAmount, models.StateCardCount, models.StatePaymentStatus,
		models.StateEmployment, models.StateMonthlyPayment, models.StateQualificationComplete,
		models.StateIntentCheck, models.StateTransfer, models.StateClosing,
	}
	for _, state := range states {
		if Render(state, models.CustomerProfile{}) == "" {
			t.Errorf("Render(%s) returned empty script", state)
		}
	}
}

func TestRenderUnknownStateIsEmpty(t *testing.T) {
	if got := Render(models.ConversationState("bogus"), models.CustomerProfile{}); got != "" {
		t.Errorf("expected empty script for unknown state, got %q", got)
	}
}

func TestRenderSubstitutesProfileFields(t *testing.T) {
	profile := models.CustomerProfile{
		FirstName: "John",
		DebtInfo: models.DebtInfo{
			TotalAmount:    floatPtr(15000),
			CardCount:      intPtr(4),
			MonthlyPayment: floatPtr(450),
		},
	}

	if got := Render(models.StateCardCount, profile); !strings.Contains(got, "$15000") {
		t.Errorf("card count question should mention balance, got %q", got)
	}
	if got := Render(models.StateIntentCheck, profile); !strings.Contains(got, "John") || !strings.Contains(got, "$450") {
		t.Errorf("intent check should mention name and monthly payment, got %q", got)
	}
	if got := Render(models.StateTransfer, profile); !strings.Contains(got, "John") {
		t.Errorf("transfer message should address customer by name, got %q", got)
	}
	if got := Render(models.StateClosing, models.CustomerProfile{}); strings.Contains(got, ",") && strings.Contains(got, "John") {
		t.Errorf("closing without name should not be personalized, got %q", got)
	}
}

func TestRenderObjectionKnownTypes(t *testing.T) {
	profile := models.CustomerProfile{FirstName: "Jane"}
	for _, objType := range ObjectionTypes {
		got := RenderObjection(objType, profile)
		if got == "" {
			t.Errorf("RenderObjection(%s) returned empty response", objType)
		}
	}
}

func TestRenderObjectionFallsBackToGeneral(t *testing.T) {
	profile := models.CustomerProfile{FirstName: "Jane"}
	got := RenderObjection("unheard_of_objection", profile)
	want := RenderObjection(ObjectionGeneral, profile)
	if got != want {
		t.Errorf("unknown objection should render general response")
	}
}

func TestRenderObjectionAddressesByLastName(t *testing.T) {
	profile := models.CustomerProfile{LastName: "Smith"}
	got := RenderObjection(ObjectionNotInterested, profile)
	if !strings.Contains(got, "Mr./Ms. Smith") {
		t.Errorf("expected last-name address, got %q", got)
	}
}

func TestIsKnownObjectionType(t *testing.T) {
	if !IsKnownObjectionType(ObjectionDoNotCall) {
		t.Error("do_not_call should be a known objection type")
	}
	if IsKnownObjectionType("nonsense") {
		t.Error("nonsense should not be a known objection type")
	}
}
