package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Patient mirrors the record the patient API returns.
// The backend is authoritative; only IsActive is changed locally.
type Patient struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Avatar           string `json:"avatar,omitempty"`
	Age              int    `json:"age,omitempty"`
	Gender           string `json:"gender,omitempty"`
	BloodType        string `json:"bloodType,omitempty"`
	MedicalCondition string `json:"medicalCondition,omitempty"`
	Medications      string `json:"medications,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	BirthDate        string `json:"birthDate,omitempty"`
	DeviceID         string `json:"deviceId,omitempty"`
	IsActive         bool   `json:"isActive"`
	AddedOn          string `json:"addedOn,omitempty"`
}

// UnmarshalJSON tolerates the field spellings used across backend revisions:
// patientId/patientID for the id, photo for the avatar and a string age.
func (p *Patient) UnmarshalJSON(data []byte) error {
	type alias Patient
	var raw struct {
		alias
		Age       json.RawMessage `json:"age"`
		PatientID string          `json:"patientId"`
		PatientId string          `json:"patientID"`
		Photo     string          `json:"photo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Patient(raw.alias)
	if out.ID == "" {
		out.ID = raw.PatientID
	}
	if out.ID == "" {
		out.ID = raw.PatientId
	}
	if out.Avatar == "" {
		out.Avatar = raw.Photo
	}
	out.Age = parseAge(raw.Age)
	*p = out
	return nil
}

func parseAge(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(n)
}

// PatientRequest is what the caregiver submits to register a patient
type PatientRequest struct {
	Name             string `json:"name"`
	BirthDate        string `json:"birthDate,omitempty"`
	Age              int    `json:"age,omitempty"`
	Gender           string `json:"gender,omitempty"`
	BloodType        string `json:"bloodType,omitempty"`
	MedicalCondition string `json:"medicalCondition,omitempty"`
	Medications      string `json:"medications,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	Photo            string `json:"photo,omitempty"`
	DeviceID         string `json:"deviceId,omitempty"`

	// AvatarPath is a local image file picked on the device; it is uploaded
	// and replaced by its URL before the request is sent.
	AvatarPath string `json:"-"`
}
