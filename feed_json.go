package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"livetrack-map/internal/mapview"
)

// JSONEventSource pulls people or vehicle state from a JSON endpoint.
//
// People documents are an array of person objects or an object wrapping
// one under "members". A vehicle document is a single object, optionally
// wrapped under "data".
type JSONEventSource struct {
	url        string
	event      string
	httpClient *http.Client
}

func NewJSONEventSource(url, event string, timeout time.Duration) *JSONEventSource {
	return &JSONEventSource{
		url:        url,
		event:      event,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *JSONEventSource) Fetch(ctx context.Context) ([]pushEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s feed http status: %d", s.event, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("%s feed: %w", s.event, err)
	}
	switch s.event {
	case mapview.EventPerson:
		return peopleEvents(root)
	case mapview.EventVehicle:
		return vehicleEvents(root)
	}
	return nil, fmt.Errorf("%w: %q", mapview.ErrUnknownEvent, s.event)
}

func peopleEvents(root any) ([]pushEvent, error) {
	members, _ := root.([]any)
	if m, ok := root.(map[string]any); ok {
		members, _ = m["members"].([]any)
	}
	events := make([]pushEvent, 0, len(members))
	for _, mAny := range members {
		m, _ := mAny.(map[string]any)
		id := stringFrom(m["id"])
		if id == "" {
			continue
		}
		// ids may arrive as numbers; the map keys on strings
		m["id"] = id
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		events = append(events, pushEvent{Name: mapview.EventPerson, Key: id, Payload: payload})
	}
	return events, nil
}

func vehicleEvents(root any) ([]pushEvent, error) {
	obj, _ := root.(map[string]any)
	if inner, ok := obj["data"].(map[string]any); ok {
		obj = inner
	}
	if obj == nil {
		return nil, nil
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return []pushEvent{{Name: mapview.EventVehicle, Key: mapview.EventVehicle, Payload: payload}}, nil
}

func stringFrom(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}
