package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// eventType labels every envelope this bus produces: a fixed type string
// plus a per-publish source (the topic).
const eventType = "io.crosscloudkit.pubsub.message"

// wrapEnvelope encodes payload as the data of a CloudEvent before handing
// it to subscribers. Subscribers receive the envelope bytes; payload
// survives intact as the event's "data" field since it is already valid
// JSON for every publisher in this module.
func wrapEnvelope(topic string, payload []byte) ([]byte, error) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(topic)
	event.SetType(eventType)
	event.SetTime(time.Now().UTC())

	if err := event.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return nil, err
	}
	return event.MarshalJSON()
}
