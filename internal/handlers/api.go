// Package handlers is the local API the caregiver UI shell calls.
package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/lumofit/companion/internal/services"
)

// Uploader stores a multipart image and returns its URL
type Uploader interface {
	UploadFileFromHeader(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
}

// API carries the services the handlers delegate to
type API struct {
	Session  *services.SessionManager
	Readings services.ReadingsFetcher
	Poller   *services.Poller
	Patients *services.PatientCache
	Devices  *services.DeviceList
	Alerts   *services.AlertFeed
	Live     *services.LiveFeed
	Uploads  Uploader // nil when Cloudinary is not configured
}

// RequireSession rejects requests while no caregiver is signed in
func (a *API) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Session.Snapshot().Authenticated() {
			writeError(w, services.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health reports liveness
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
