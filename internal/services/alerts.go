package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumofit/companion/internal/metrics"
	"github.com/lumofit/companion/internal/models"
)

const DefaultAlertCapacity = 50

var slotTitles = map[string]string{
	models.SlotBodyTemperature: "Body Temperature",
	models.SlotOxygenLevel:     "Oxygen Level",
	models.SlotPosition:        "Position",
	models.SlotHeartRate:       "Heart Rate",
	models.SlotStressLevel:     "Stress Level",
}

// AlertFeed turns abnormal readings into alerts, newest first
type AlertFeed struct {
	capacity int
	now      func() time.Time

	mu     sync.RWMutex
	alerts []models.Alert
	last   map[string]models.Status
}

func NewAlertFeed(capacity int) *AlertFeed {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertFeed{
		capacity: capacity,
		now:      time.Now,
		last:     make(map[string]models.Status),
	}
}

// Observe records a snapshot and returns the alerts it raised. A slot
// raises once when it turns abnormal or changes abnormal status.
func (f *AlertFeed) Observe(patientID, patientName string, snap models.Snapshot) []models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()

	var raised []models.Alert
	for _, sr := range snap.Slots() {
		key := patientID + "/" + sr.Slot
		prev := f.last[key]
		status := sr.Reading.Status
		f.last[key] = status
		if !status.Abnormal() || status == prev {
			continue
		}
		raised = append(raised, f.newAlert(patientID, patientName, sr))
	}

	for _, a := range raised {
		metrics.AlertsRaised.WithLabelValues(string(a.Priority)).Inc()
	}
	if len(raised) > 0 {
		// newest first
		for i, j := 0, len(raised)-1; i < j; i, j = i+1, j-1 {
			raised[i], raised[j] = raised[j], raised[i]
		}
		f.alerts = append(append([]models.Alert(nil), raised...), f.alerts...)
		if len(f.alerts) > f.capacity {
			f.alerts = f.alerts[:f.capacity]
		}
	}
	return raised
}

func (f *AlertFeed) List() []models.Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.Alert(nil), f.alerts...)
}

// Forget drops the remembered statuses of a patient, e.g. once unmonitored
func (f *AlertFeed) Forget(patientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for slot := range slotTitles {
		delete(f.last, patientID+"/"+slot)
	}
}

func (f *AlertFeed) newAlert(patientID, patientName string, sr models.SlotReading) models.Alert {
	title := slotTitles[sr.Slot]
	reading := sr.Reading.Value
	if sr.Reading.Unit != "" {
		reading += " " + sr.Reading.Unit
	}
	who := patientName
	if who == "" {
		who = "Patient " + patientID
	}
	return models.Alert{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		PatientName: patientName,
		Slot:        sr.Slot,
		Title:       fmt.Sprintf("%s %s", title, sr.Reading.Status),
		Description: fmt.Sprintf("%s: %s reading is %s (%s)", who, title, sr.Reading.Status, reading),
		Status:      sr.Reading.Status,
		Priority:    priorityFor(sr.Reading.Status),
		RaisedAt:    f.now(),
	}
}

func priorityFor(s models.Status) models.AlertPriority {
	switch s {
	case models.StatusAlert, models.StatusHigh:
		return models.PriorityHigh
	case models.StatusWarning:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// AlertHook observes every polled snapshot and pushes raised alerts to live viewers
func AlertHook(feed *AlertFeed, patients *PatientCache, live *LiveFeed) SnapshotHook {
	return func(patientID string, snap models.Snapshot) {
		var name string
		if patients != nil {
			if p, ok := patients.Get(patientID); ok {
				name = p.Name
			}
		}
		raised := feed.Observe(patientID, name, snap)
		if live != nil && len(raised) > 0 {
			live.PublishAlerts(raised)
		}
	}
}
