package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/internal/services"
)

type PatientRequest struct {
	models.PatientRequest
	AvatarPath string `json:"avatarPath,omitempty"`
}

type PatientResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Patient *models.Patient `json:"patient,omitempty"`
}

type PatientsResponse struct {
	Success  bool             `json:"success"`
	Patients []models.Patient `json:"patients"`
}

type ReadingsResponse struct {
	Success  bool            `json:"success"`
	Snapshot models.Snapshot `json:"snapshot"`
}

type EmergencyResponse struct {
	Success bool                  `json:"success"`
	Plan    *services.ContactPlan `json:"plan"`
}

func (a *API) ListPatients(w http.ResponseWriter, r *http.Request) {
	list := a.Patients.List()
	if list == nil {
		list = []models.Patient{}
	}
	writeJSON(w, http.StatusOK, PatientsResponse{Success: true, Patients: list})
}

// CreatePatient registers the patient with the backend and caches what it returns
func (a *API) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fields := req.PatientRequest
	fields.AvatarPath = req.AvatarPath

	res, err := a.Session.RegisterPatient(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Patient != nil {
		if err := a.Patients.Add(r.Context(), res.Patient); err != nil {
			writeError(w, err)
			return
		}
	}
	message := res.Message
	if message == "" {
		message = "Patient registered successfully"
	}
	writeJSON(w, http.StatusCreated, PatientResponse{Success: true, Message: message, Patient: res.Patient})
}

func (a *API) RemovePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Patients.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	a.Alerts.Forget(id)
	writeJSON(w, http.StatusOK, PatientResponse{Success: true, Message: "Patient removed"})
}

func (a *API) TogglePatient(w http.ResponseWriter, r *http.Request) {
	p, err := a.Patients.ToggleActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PatientResponse{Success: true, Patient: &p})
}

// GetReadings is a one-shot fetch outside any poller
func (a *API) GetReadings(w http.ResponseWriter, r *http.Request) {
	payload, err := a.Readings.GetReadings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Success: false, Error: services.LoadHealthDataError})
		return
	}
	writeJSON(w, http.StatusOK, ReadingsResponse{Success: true, Snapshot: payload.Snapshot()})
}

func (a *API) GetEmergencyPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := a.Patients.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, services.ErrPatientNotFound)
		return
	}
	plan, err := services.BuildContactPlan(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EmergencyResponse{Success: true, Plan: plan})
}
