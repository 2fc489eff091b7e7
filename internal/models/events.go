package models

import (
	"time"

	"github.com/google/uuid"
)

// OracleInitializedEvent announces the one-time creation of a registry.
type OracleInitializedEvent struct {
	EventID   string    `json:"event_id"`
	Owner     string    `json:"owner"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewOracleInitializedEvent builds the creation event for owner.
func NewOracleInitializedEvent(owner string, emittedAt time.Time) OracleInitializedEvent {
	return OracleInitializedEvent{
		EventID:   uuid.NewString(),
		Owner:     owner,
		EmittedAt: emittedAt,
	}
}

// DataUpdatedEvent announces an accepted measurement write. Timestamp is the
// measurement's observation time, EmittedAt the wall-clock time the write
// was committed.
type DataUpdatedEvent struct {
	EventID   string    `json:"event_id"`
	Owner     string    `json:"owner"`
	Latitude  uint64    `json:"latitude"`
	Longitude uint64    `json:"longitude"`
	DNI       uint64    `json:"dni"`
	GHI       uint64    `json:"ghi"`
	LatTilt   uint64    `json:"lat_tilt"`
	Timestamp uint64    `json:"timestamp"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewDataUpdatedEvent builds the write event for a stored measurement.
func NewDataUpdatedEvent(owner string, key LocationKey, m Measurement, emittedAt time.Time) DataUpdatedEvent {
	return DataUpdatedEvent{
		EventID:   uuid.NewString(),
		Owner:     owner,
		Latitude:  key.Latitude,
		Longitude: key.Longitude,
		DNI:       m.DNI,
		GHI:       m.GHI,
		LatTilt:   m.LatTilt,
		Timestamp: m.LastUpdated,
		EmittedAt: emittedAt,
	}
}
