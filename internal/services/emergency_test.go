package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/pkg/utils"
)

func TestBuildContactPlan(t *testing.T) {
	plan, err := BuildContactPlan(models.Patient{ID: "p1", Name: "Ann Lee", EmergencyContact: "+94 (77) 123-4567"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Phone != "+94771234567" || plan.CallURI != "tel:+94771234567" {
		t.Fatalf("unexpected phone %+v", plan)
	}
	if !strings.HasPrefix(plan.SMSURI, "sms:+94771234567?body=") || strings.Contains(plan.SMSURI, " ") {
		t.Fatalf("unexpected sms uri %q", plan.SMSURI)
	}
	if !strings.Contains(plan.Message, "Ann Lee") {
		t.Fatalf("expected patient name in message")
	}
	if plan.EmergencyCallURI != "tel:"+EmergencyServiceNumber {
		t.Fatalf("unexpected emergency uri %q", plan.EmergencyCallURI)
	}
}

func TestBuildContactPlan_NoContact(t *testing.T) {
	_, err := BuildContactPlan(models.Patient{ID: "p1", EmergencyContact: "n/a"})
	var verr *utils.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
