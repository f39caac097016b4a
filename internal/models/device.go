package models

// Device is a wearable paired on the caregiver's dashboard.
// The list is local to the device and never sent to the backend.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ConnectedSince string `json:"connectedSince"`
}
