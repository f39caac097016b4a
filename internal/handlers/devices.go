package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumofit/companion/internal/models"
)

type DeviceRequest struct {
	Name string `json:"name"`
}

type DeviceResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Device  *models.Device `json:"device,omitempty"`
}

type DevicesResponse struct {
	Success bool            `json:"success"`
	Devices []models.Device `json:"devices"`
}

func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	list := a.Devices.List()
	if list == nil {
		list = []models.Device{}
	}
	writeJSON(w, http.StatusOK, DevicesResponse{Success: true, Devices: list})
}

func (a *API) AddDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := a.Devices.Add(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DeviceResponse{Success: true, Message: "Device connected", Device: &d})
}

func (a *API) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := a.Devices.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeviceResponse{Success: true, Message: "Device removed"})
}
