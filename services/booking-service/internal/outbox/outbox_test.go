package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/llcportal/consultations/libs/kafkax"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

func TestNotificationEvent(t *testing.T) {
	n := model.Notification{
		Recipient:      "guest@example.com",
		TemplateKey:    model.TemplateReminder3h,
		Language:       "es",
		BookingID:      "b-1",
		BookingCode:    "LLC-7KQ2XM",
		Params:         map[string]string{"time": "15:00"},
		IdempotencyKey: "b-1:3h",
	}
	evt, err := NotificationEvent(n)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if evt.EventType != TopicNotificationRequested || evt.AggregateID != "b-1" || evt.AggregateType != "booking" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}
	var decoded model.Notification
	if err := json.Unmarshal(evt.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.IdempotencyKey != "b-1:3h" || decoded.Params["time"] != "15:00" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestToMessage(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		ID: 7, EventID: "evt-7", AggregateID: "b-1", EventType: TopicNotificationRequested, Payload: []byte(`{}`),
	})
	if msg.Topic != TopicNotificationRequested || string(msg.Key) != "b-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-7" || meta.EventType != TopicNotificationRequested {
		t.Fatalf("unexpected headers: %+v", meta)
	}
}
