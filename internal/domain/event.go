package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventType names a report lifecycle transition.
type EventType string

const (
	EventReportCreated  EventType = "report.created"
	EventReportDeleted  EventType = "report.deleted"
	EventReportVoted    EventType = "report.voted"
	EventReportVerified EventType = "report.verified"
)

// HazardEvent describes a change to a report for downstream consumers
// (push notifications, analytics).
type HazardEvent struct {
	Type       EventType `json:"type"`
	ReportID   int64     `json:"reportId"`
	UserID     string    `json:"userId,omitempty"`
	Report     *Report   `json:"report,omitempty"`
	Votes      *int      `json:"votes,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OutputEvent is the serialized form destined for the event topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// EventPublisher accepts hazard events. Implementations must not block the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event HazardEvent)
}

// SerializeHazardEvent marshals an event keyed by report id so all events for
// one report land on the same partition.
func SerializeHazardEvent(event HazardEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize hazard event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(strconv.FormatInt(event.ReportID, 10)),
		Value: data,
		Headers: map[string]string{
			"event_type":  string(event.Type),
			"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
