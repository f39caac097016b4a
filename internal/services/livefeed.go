package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumofit/companion/internal/metrics"
	"github.com/lumofit/companion/internal/models"
)

// Live event types
const (
	EventVitals = "vitals"
	EventAlert  = "alert"
)

// LiveEvent is one message pushed to a live vitals connection
type LiveEvent struct {
	Type      string        `json:"type"`
	PatientID string        `json:"patient_id"`
	State     *PollState    `json:"state,omitempty"`
	Alert     *models.Alert `json:"alert,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// LiveConn is the minimal interface our WebSocket implementation must satisfy.
type LiveConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Viewer is one open connection watching one patient
type Viewer struct {
	ID        uuid.UUID
	PatientID string

	conn LiveConn
	mu   sync.Mutex
}

// Send writes ev; writes on one connection are serialised
func (v *Viewer) Send(ev LiveEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conn.WriteJSON(ev)
}

// LiveFeed is the registry of live viewers, keyed by connection id
type LiveFeed struct {
	mu      sync.RWMutex
	viewers map[uuid.UUID]*Viewer
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{viewers: make(map[uuid.UUID]*Viewer)}
}

func (f *LiveFeed) Register(patientID string, conn LiveConn) *Viewer {
	v := &Viewer{ID: uuid.New(), PatientID: patientID, conn: conn}

	f.mu.Lock()
	f.viewers[v.ID] = v
	f.mu.Unlock()

	metrics.LiveViewers.Inc()
	return v
}

func (f *LiveFeed) Unregister(v *Viewer) {
	f.mu.Lock()
	_, ok := f.viewers[v.ID]
	delete(f.viewers, v.ID)
	f.mu.Unlock()
	if ok {
		metrics.LiveViewers.Dec()
	}
}

// Count returns the number of viewers watching patientID
func (f *LiveFeed) Count(patientID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, v := range f.viewers {
		if v.PatientID == patientID {
			n++
		}
	}
	return n
}

// FanOut sends ev to every viewer of its patient, best effort.
func (f *LiveFeed) FanOut(ev LiveEvent) {
	if ev.PatientID == "" {
		return
	}

	f.mu.RLock()
	var targets []*Viewer
	for _, v := range f.viewers {
		if v.PatientID == ev.PatientID {
			targets = append(targets, v)
		}
	}
	f.mu.RUnlock()

	for _, v := range targets {
		go func(v *Viewer) {
			if err := v.Send(ev); err != nil {
				log.Printf("livefeed: error writing %s event to websocket: %v", ev.Type, err)
			}
		}(v)
	}
}

// PublishAlerts fans raised alerts out to the patient's viewers
func (f *LiveFeed) PublishAlerts(alerts []models.Alert) {
	for i := range alerts {
		a := alerts[i]
		f.FanOut(LiveEvent{Type: EventAlert, PatientID: a.PatientID, Alert: &a})
	}
}
