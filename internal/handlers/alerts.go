package handlers

import (
	"net/http"

	"github.com/lumofit/companion/internal/models"
)

type AlertsResponse struct {
	Success bool           `json:"success"`
	Alerts  []models.Alert `json:"alerts"`
}

func (a *API) ListAlerts(w http.ResponseWriter, r *http.Request) {
	list := a.Alerts.List()
	if list == nil {
		list = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Success: true, Alerts: list})
}
