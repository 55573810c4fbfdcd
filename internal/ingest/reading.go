package ingest

import (
	"errors"
	"time"
)

// SensorReading is one report from a smoke detector unit.
type SensorReading struct {
	DeviceID       string    `json:"id"`
	FireDetection  int       `json:"fireDetection"`
	Confidence     float64   `json:"confidence"`
	HumanDetection int       `json:"humanDetection"`
	Timestamp      time.Time `json:"-"`
}

// FireDetected reports whether the reading signals a fire.
func (r SensorReading) FireDetected() bool {
	return r.FireDetection == 1
}

// Validate checks the reading payload.
func (r SensorReading) Validate() error {
	if r.DeviceID == "" {
		return errors.New("ingest: missing device id")
	}
	if r.FireDetection != 0 && r.FireDetection != 1 {
		return errors.New("ingest: fireDetection must be 0 or 1")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return errors.New("ingest: confidence out of range")
	}
	if r.HumanDetection < 0 {
		return errors.New("ingest: negative humanDetection")
	}
	return nil
}
