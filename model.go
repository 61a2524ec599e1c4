package main

import (
	"encoding/json"

	"livetrack-map/internal/mapview"
)

// pushEvent is one named update headed for every mounted map.
type pushEvent struct {
	Name string
	// Key identifies the entity so pollers can spot unchanged payloads.
	Key     string
	Payload json.RawMessage
}

// eventKey returns the entity key of a payload: the person id, or a fixed
// key for the single vehicle.
func eventKey(name string, payload []byte) string {
	if name != mapview.EventPerson {
		return name
	}
	var p struct {
		ID mapview.Label `json:"id"`
	}
	_ = json.Unmarshal(payload, &p)
	return string(p.ID)
}
