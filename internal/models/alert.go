package models

import "time"

// AlertPriority orders alerts on the alerts screen
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// Alert is raised when a patient's vital sign turns abnormal
type Alert struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patientId"`
	PatientName string        `json:"patientName,omitempty"`
	Slot        string        `json:"slot"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Priority    AlertPriority `json:"priority"`
	RaisedAt    time.Time     `json:"time"`
}
