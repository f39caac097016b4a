package services

import (
	"net/url"
	"strings"

	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/pkg/utils"
)

// EmergencyServiceNumber is shown for immediate assistance
const EmergencyServiceNumber = "119"

// ContactPlan is everything the emergency screen needs to reach someone
type ContactPlan struct {
	PatientID        string `json:"patientId"`
	PatientName      string `json:"patientName"`
	DeviceID         string `json:"deviceId,omitempty"`
	IsActive         bool   `json:"isActive"`
	Phone            string `json:"phone"`
	CallURI          string `json:"callUri"`
	SMSURI           string `json:"smsUri"`
	Message          string `json:"message"`
	EmergencyCallURI string `json:"emergencyCallUri"`
}

// BuildContactPlan reads the patient's emergency contact into dialable URIs
func BuildContactPlan(p models.Patient) (*ContactPlan, error) {
	phone := normalizePhone(p.EmergencyContact)
	if len(strings.TrimPrefix(phone, "+")) < 3 {
		return nil, &utils.ValidationError{Field: "emergencyContact", Message: "No emergency contact on file for this patient"}
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "your patient"
	}
	msg := "LumoFit emergency: " + name + " needs assistance. Please respond as soon as possible."

	return &ContactPlan{
		PatientID:        p.ID,
		PatientName:      p.Name,
		DeviceID:         p.DeviceID,
		IsActive:         p.IsActive,
		Phone:            phone,
		CallURI:          "tel:" + phone,
		SMSURI:           "sms:" + phone + "?body=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20"),
		Message:          msg,
		EmergencyCallURI: "tel:" + EmergencyServiceNumber,
	}, nil
}

// normalizePhone keeps digits and a leading plus
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
