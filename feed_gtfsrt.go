package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"livetrack-map/internal/mapview"
)

// GtfsRtVehicleSource tracks one vehicle of a GTFS-realtime vehicle
// positions feed and reports it as the map's vehicle.
type GtfsRtVehicleSource struct {
	url        string
	vehicleID  string
	httpClient *http.Client
}

// NewGtfsRtVehicleSource follows vehicleID, or the first positioned vehicle
// when vehicleID is empty.
func NewGtfsRtVehicleSource(url, vehicleID string, timeout time.Duration) *GtfsRtVehicleSource {
	return &GtfsRtVehicleSource{
		url:        url,
		vehicleID:  vehicleID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *GtfsRtVehicleSource) Fetch(ctx context.Context) ([]pushEvent, error) {
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
		return nil, fmt.Errorf("gtfs-rt http status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, err
	}
	for _, ent := range feed.Entity {
		vp := ent.GetVehicle()
		if vp == nil || vp.Position == nil {
			continue
		}
		id := vp.GetVehicle().GetId()
		if id == "" || (s.vehicleID != "" && id != s.vehicleID) {
			continue
		}
		payload, err := json.Marshal(vehicleStateFromPosition(vp))
		if err != nil {
			return nil, err
		}
		return []pushEvent{{Name: mapview.EventVehicle, Key: mapview.EventVehicle, Payload: payload}}, nil
	}
	return nil, nil
}

// vehicleStateFromPosition maps a GTFS-RT position onto the vehicle event.
// Speed is converted from m/s to km/h.
func vehicleStateFromPosition(vp *gtfs.VehiclePosition) mapview.VehicleState {
	pos := vp.GetPosition()
	st := mapview.VehicleState{
		Latitude:  mapview.Num(float64(pos.GetLatitude())),
		Longitude: mapview.Num(float64(pos.GetLongitude())),
	}
	if pos.Bearing != nil {
		st.Heading = mapview.Num(float64(pos.GetBearing()))
	}
	if pos.Speed != nil {
		st.Speed = mapview.Num(math.Round(float64(pos.GetSpeed()) * 3.6))
	}
	if vp.CurrentStatus != nil {
		st.State = mapview.Text(strings.ToLower(vp.GetCurrentStatus().String()))
	}
	return st
}
