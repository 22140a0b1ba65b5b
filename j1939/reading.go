package j1939

import "time"

const StatusNormal = "normal"

// Reading is one decoded signal value. Every reading traces back to exactly
// one (frame, SPN rule) pair.
type Reading struct {
	EquipmentID string
	SignalName  string
	Value       float64
	Unit        string
	Timestamp   time.Time
	Status      string
	Source      string
	SPN         uint32
}
