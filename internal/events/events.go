package events

import (
	"encoding/json"
	"time"
)

// Event types on the subscriber wire. TypeNewListing and its data shape are
// the stable integration contract with downstream clients.
const (
	TypeWelcome         = "welcome"
	TypeInitialListings = "initial_listings"
	TypeNewListing      = "new_listing"
	TypePing            = "ping"
	TypePong            = "pong"
)

type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Make builds the serialized envelope for one event.
func Make(typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Envelope{
		Type:      typ,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}
	b, _ := json.Marshal(e)
	return string(b)
}
