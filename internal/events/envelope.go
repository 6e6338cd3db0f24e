// Package events defines the bus envelope, event payloads, and the driver-domain
// event producer.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/requestcontext"
)

type EventType string

const (
	EventDriverCreated             EventType = "DRIVER_CREATED"
	EventDriverStatusChanged       EventType = "DRIVER_STATUS_CHANGED"
	EventDriverHOSUpdated          EventType = "DRIVER_HOS_UPDATED"
	EventDriverLocationUpdated     EventType = "DRIVER_LOCATION_UPDATED"
	EventDriverAvailabilityChanged EventType = "DRIVER_AVAILABILITY_CHANGED"
	EventDriverScoreUpdated        EventType = "DRIVER_SCORE_UPDATED"
	EventDriverDeleted             EventType = "DRIVER_DELETED"

	EventELDDataReceived EventType = "ELD_DATA_RECEIVED"
	EventPositionUpdated EventType = "POSITION_UPDATED"
)

var knownEventTypes = map[EventType]struct{}{
	EventDriverCreated: {}, EventDriverStatusChanged: {}, EventDriverHOSUpdated: {},
	EventDriverLocationUpdated: {}, EventDriverAvailabilityChanged: {}, EventDriverScoreUpdated: {},
	EventDriverDeleted: {}, EventELDDataReceived: {}, EventPositionUpdated: {},
}

// IsKnown reports whether t is an event type this service understands.
func (t EventType) IsKnown() bool {
	_, ok := knownEventTypes[t]
	return ok
}

type Category string

const (
	CategoryDriver   Category = "DRIVER"
	CategoryELD      Category = "ELD"
	CategoryPosition Category = "POSITION"
)

// EventVersion is the envelope schema version stamped on every emitted event.
const EventVersion = "1.0"

// Metadata is immutable once emitted.
type Metadata struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	EventVersion  string    `json:"event_version"`
	EventTime     time.Time `json:"event_time"`
	Producer      string    `json:"producer"`
	CorrelationID string    `json:"correlation_id"`
	Category      Category  `json:"category"`
}

// Envelope is the wire shape on every topic.
type Envelope struct {
	Metadata *Metadata       `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh event id. The correlation id is taken
// from ctx when the event is derived from an inbound one, otherwise generated.
func NewEnvelope(ctx context.Context, eventType EventType, category Category, producer string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal event payload")
	}
	correlationID := requestcontext.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &Envelope{
		Metadata: &Metadata{
			EventID:       uuid.NewString(),
			EventType:     eventType,
			EventVersion:  EventVersion,
			EventTime:     requestcontext.Now(ctx).UTC(),
			Producer:      producer,
			CorrelationID: correlationID,
			Category:      category,
		},
		Payload: raw,
	}, nil
}

// Decode parses an envelope and rejects ones without metadata or with an unknown
// event type. Failures carry CodeMessageFormat.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMessageFormat, "envelope is not valid JSON")
	}
	if env.Metadata == nil {
		return nil, dErrors.New(dErrors.CodeMessageFormat, "envelope missing metadata")
	}
	if !env.Metadata.EventType.IsKnown() {
		return nil, dErrors.Newf(dErrors.CodeMessageFormat, "unrecognized event_type %q", env.Metadata.EventType)
	}
	return &env, nil
}

// DecodePayload unmarshals the payload into out.
func (e *Envelope) DecodePayload(out any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return dErrors.New(dErrors.CodeMessageFormat, "envelope missing payload")
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeMessageFormat, "payload does not match event type")
	}
	return nil
}
