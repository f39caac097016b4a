package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lumofit/companion/internal/models"
)

// ReadingsAPI fetches the latest vital signs of a patient
type ReadingsAPI struct {
	client *Client
}

func NewReadingsAPI(client *Client) *ReadingsAPI {
	return &ReadingsAPI{client: client}
}

// GetReadings returns the raw, possibly partial, readings payload
func (r *ReadingsAPI) GetReadings(ctx context.Context, patientID string) (*models.ReadingsPayload, error) {
	var payload models.ReadingsPayload
	err := r.client.do(ctx, request{
		op:       "get_readings",
		method:   http.MethodGet,
		path:     "/getReadings",
		query:    url.Values{"patientId": []string{patientID}},
		fallback: "Failed to load health data.",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}
