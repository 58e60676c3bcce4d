package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names emitted by the instrumentor.
const (
	EventImpression     = "test_impression"
	EventCTAClick       = "cta_button_click"
	EventScrollDepth    = "scroll_depth"
	EventPageEngagement = "page_engagement"
	EventGitHubStar     = "github_star_status"
)

// Record keys merged into every outgoing event.
const (
	KeyEvent     = "event"
	KeyTestID    = "test_id"
	KeyTestName  = "test_name"
	KeyVariant   = "variant"
	KeySessionID = "session_id"
	KeyTimestamp = "timestamp"
)

// ScrollMilestones are the scroll-depth percentages reported once per page load.
var ScrollMilestones = [...]int{25, 50, 75, 100}

// Properties is a flat field-name to value mapping attached to an event.
type Properties map[string]any

// Event is a single behavioral observation tagged with its experiment.
type Event struct {
	Name       string
	TestID     string
	TestName   string
	Properties Properties
}

// Record returns the flattened payload sent to sinks and the endpoint.
// Caller properties override the experiment fields on key clash.
func (e Event) Record() Properties {
	rec := make(Properties, len(e.Properties)+3)
	rec[KeyEvent] = e.Name
	rec[KeyTestID] = e.TestID
	rec[KeyTestName] = e.TestName
	for k, v := range e.Properties {
		rec[k] = v
	}
	return rec
}

// Timestamp formats t the way every event reports it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// IncomingEvent is the subset of a posted record the collector indexes.
type IncomingEvent struct {
	Event     string `json:"event"`
	TestID    string `json:"test_id"`
	TestName  string `json:"test_name"`
	Variant   string `json:"variant"`
	SessionID string `json:"session_id"`
}

// ParseIncomingEvent decodes the indexed fields of a posted record.
func ParseIncomingEvent(data []byte) (*IncomingEvent, error) {
	var in IncomingEvent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if in.Event == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if in.TestID == "" {
		return nil, fmt.Errorf("test_id is required")
	}
	return &in, nil
}
