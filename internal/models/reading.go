package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Status is a vital-sign classification reported by the readings backend
type Status string

const (
	StatusNormal  Status = "Normal"
	StatusWarning Status = "Warning"
	StatusAlert   Status = "Alert"
	StatusHigh    Status = "High"
	StatusUnknown Status = "Unknown"
)

// Abnormal is true for anything the backend did not call Normal or Unknown
func (s Status) Abnormal() bool {
	return s != StatusNormal && s != StatusUnknown && s != ""
}

// PlaceholderValue is shown for a slot the backend did not report
const PlaceholderValue = "--"

// Reading is one (value, unit, status) triple.
// Value keeps the text form of whatever the backend sent, number or string.
type Reading struct {
	Value  string `json:"value"`
	Unit   string `json:"unit,omitempty"`
	Status Status `json:"status"`
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value  json.RawMessage `json:"value"`
		Unit   string          `json:"unit"`
		Status Status          `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Value = readingValue(raw.Value)
	r.Unit = raw.Unit
	r.Status = raw.Status
	if r.Status == "" {
		r.Status = StatusUnknown
	}
	return nil
}

func readingValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return PlaceholderValue
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}

// Slot names as used on the wire
const (
	SlotBodyTemperature = "bodyTemperature"
	SlotOxygenLevel     = "oxygenLevel"
	SlotPosition        = "position"
	SlotHeartRate       = "heartRate"
	SlotStressLevel     = "stressLevel"
)

// Snapshot is one complete set of the five vital-sign slots
type Snapshot struct {
	BodyTemperature Reading `json:"bodyTemperature"`
	OxygenLevel     Reading `json:"oxygenLevel"`
	Position        Reading `json:"position"`
	HeartRate       Reading `json:"heartRate"`
	StressLevel     Reading `json:"stressLevel"`
}

func placeholderBodyTemperature() Reading {
	return Reading{Value: PlaceholderValue, Unit: "°C", Status: StatusUnknown}
}
func placeholderOxygenLevel() Reading {
	return Reading{Value: PlaceholderValue, Unit: "%", Status: StatusUnknown}
}
func placeholderPosition() Reading {
	return Reading{Value: PlaceholderValue, Status: StatusUnknown}
}
func placeholderHeartRate() Reading {
	return Reading{Value: PlaceholderValue, Unit: "BPM", Status: StatusUnknown}
}
func placeholderStressLevel() Reading {
	return Reading{Value: PlaceholderValue, Status: StatusUnknown}
}

// PlaceholderSnapshot is the snapshot shown before any successful fetch
func PlaceholderSnapshot() Snapshot {
	return Snapshot{
		BodyTemperature: placeholderBodyTemperature(),
		OxygenLevel:     placeholderOxygenLevel(),
		Position:        placeholderPosition(),
		HeartRate:       placeholderHeartRate(),
		StressLevel:     placeholderStressLevel(),
	}
}

// SlotReading pairs a slot name with its reading
type SlotReading struct {
	Slot    string
	Reading Reading
}

// Slots lists the five slots in display order
func (s Snapshot) Slots() []SlotReading {
	return []SlotReading{
		{SlotHeartRate, s.HeartRate},
		{SlotOxygenLevel, s.OxygenLevel},
		{SlotStressLevel, s.StressLevel},
		{SlotBodyTemperature, s.BodyTemperature},
		{SlotPosition, s.Position},
	}
}

// ReadingsPayload is the raw /getReadings response. Every slot is optional
// and the position slot is sent as either "position" or "orientation".
type ReadingsPayload struct {
	BodyTemperature *Reading `json:"bodyTemperature,omitempty"`
	OxygenLevel     *Reading `json:"oxygenLevel,omitempty"`
	Orientation     *Reading `json:"orientation,omitempty"`
	Position        *Reading `json:"position,omitempty"`
	HeartRate       *Reading `json:"heartRate,omitempty"`
	StressLevel     *Reading `json:"stressLevel,omitempty"`
}

// UnmarshalJSON decodes each slot on its own. A slot that is not a reading
// object is dropped, so it shows its placeholder instead of failing the poll.
func (p *ReadingsPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ReadingsPayload{
		BodyTemperature: slotReading(raw[SlotBodyTemperature]),
		OxygenLevel:     slotReading(raw[SlotOxygenLevel]),
		Orientation:     slotReading(raw["orientation"]),
		Position:        slotReading(raw[SlotPosition]),
		HeartRate:       slotReading(raw[SlotHeartRate]),
		StressLevel:     slotReading(raw[SlotStressLevel]),
	}
	return nil
}

func slotReading(raw json.RawMessage) *Reading {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var r Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	return &r
}

// Snapshot builds a fresh snapshot, filling every absent slot with its
// placeholder. Nothing is carried over from earlier snapshots.
func (p ReadingsPayload) Snapshot() Snapshot {
	s := PlaceholderSnapshot()
	if p.BodyTemperature != nil {
		s.BodyTemperature = *p.BodyTemperature
	}
	if p.OxygenLevel != nil {
		s.OxygenLevel = *p.OxygenLevel
	}
	switch {
	case p.Position != nil:
		s.Position = *p.Position
	case p.Orientation != nil:
		s.Position = *p.Orientation
	}
	if p.HeartRate != nil {
		s.HeartRate = *p.HeartRate
	}
	if p.StressLevel != nil {
		s.StressLevel = *p.StressLevel
	}
	return s
}
