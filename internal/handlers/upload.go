package handlers

import (
	"net/http"
)

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadAvatar stores a picked patient photo and returns its URL
func (a *API) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if a.Uploads == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Success: false, Error: "Avatar upload is not configured"})
		return
	}

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: "Failed to parse form: " + err.Error()})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: "No file provided: " + err.Error()})
		return
	}
	defer file.Close()

	url, err := a.Uploads.UploadFileFromHeader(r.Context(), fileHeader)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Success: false, Error: "Failed to upload file: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		URL:     url,
	})
}
