package schema

import "time"

const ClientEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "parentshop.analytics",
	"name": "client_event",
	"fields": [
		{"name": "message_id", "type": "string"},
		{"name": "type", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "anonymous_id", "type": "string"},
		{"name": "user_id", "type": "string", "default": ""},
		{"name": "properties", "type": "string", "default": "{}"},
		{"name": "page_url", "type": "string", "default": ""},
		{"name": "page_title", "type": "string", "default": ""},
		{"name": "timestamp", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

// ClientEventV1 is an analytics event on the wire. Properties hold the
// event properties as a JSON object.
type ClientEventV1 struct {
	MessageID   string    `avro:"message_id"`
	Type        string    `avro:"type"`
	Name        string    `avro:"name"`
	AnonymousID string    `avro:"anonymous_id"`
	UserID      string    `avro:"user_id"`
	Properties  string    `avro:"properties"`
	PageURL     string    `avro:"page_url"`
	PageTitle   string    `avro:"page_title"`
	Timestamp   time.Time `avro:"timestamp"`
}
