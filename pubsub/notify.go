package pubsub

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType is the synthesized bucket-event kind.
type EventType string

const (
	EventUploaded EventType = "Uploaded"
	EventDeleted  EventType = "Deleted"
)

// Notification is the JSON shape synthesized by MonitorBasedPubSub and
// (after normalization) native notification parsers.
type Notification struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	EventType    EventType `json:"eventType"`
	Timestamp    time.Time `json:"timestamp"`
	Size         *int64    `json:"size,omitempty"`
	LastModified *string   `json:"lastModified,omitempty"`
}

// MarshalNotification renders the wire JSON for a synthesized event, using
// ISO-8601 UTC with offset for the timestamp.
func MarshalNotification(n Notification) ([]byte, error) {
	return json.Marshal(n)
}

// upload/delete keyword sets used to detect a native provider notification
// body's event kind.
var (
	uploadKeywords = []string{"Uploaded", "ObjectCreated", "OBJECT_FINALIZE"}
	deleteKeywords = []string{"Deleted", "ObjectRemoved", "OBJECT_DELETE"}
)

// DetectNativeEventType applies keyword-based detection to a raw
// native-provider message body. Returns ("", false) if neither set of
// keywords matches.
func DetectNativeEventType(body string) (EventType, bool) {
	for _, kw := range uploadKeywords {
		if strings.Contains(body, kw) {
			return EventUploaded, true
		}
	}
	for _, kw := range deleteKeywords {
		if strings.Contains(body, kw) {
			return EventDeleted, true
		}
	}
	return "", false
}
