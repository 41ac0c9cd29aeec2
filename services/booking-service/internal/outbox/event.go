package outbox

import (
	"encoding/json"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// TopicNotificationRequested carries model.Notification payloads to the notification service.
const TopicNotificationRequested = "consultation.notification.requested.v1"

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NotificationEvent wraps n for the notification topic, keyed by booking so that messages
// for one booking stay ordered.
func NotificationEvent(n model.Notification) (Event, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   n.BookingID,
		EventType:     TopicNotificationRequested,
		Payload:       payload,
	}, nil
}
