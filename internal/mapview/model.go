package mapview

import (
	"html/template"
	"math"
	"strconv"
)

// Push event names delivered by the live-view transport.
const (
	EventPerson  = "person"
	EventVehicle = "tesla"
)

// VehicleState is the payload of a "tesla" event. Every update replaces the
// previous one in full.
type VehicleState struct {
	Latitude      Field `json:"latitude"`
	Longitude     Field `json:"longitude"`
	Heading       Field `json:"heading"`
	DoorsOpen     Field `json:"doors_open"`
	TrunkOpen     Field `json:"trunk_open"`
	FrunkOpen     Field `json:"frunk_open"`
	Speed         Field `json:"speed"`
	WindowsOpen   Field `json:"windows_open"`
	PluggedIn     Field `json:"plugged_in"`
	Geofence      Field `json:"geofence"`
	IsUserPresent Field `json:"is_user_present"`
	Locked        Field `json:"locked"`
	State         Field `json:"state"`
}

// Doors fans the single doors_open flag out to all four doors. The event
// contract carries no per-door state, so the icon cannot tell doors apart.
func (v VehicleState) Doors() DoorStates {
	d := v.DoorsOpen.Float()
	return DoorStates{
		DF: d,
		DR: d,
		PF: d,
		PR: d,
		FT: v.FrunkOpen.Float(),
		RT: v.TrunkOpen.Float(),
	}
}

// DoorStates drives the door indicators of the vehicle icon: driver
// front/rear, passenger front/rear, front trunk and rear trunk.
type DoorStates struct {
	DF, DR, PF, PR, FT, RT float64
}

// Location is the position part of a person event.
type Location struct {
	Latitude  Field `json:"latitude"`
	Longitude Field `json:"longitude"`
	Battery   Field `json:"battery"`
	Charge    Field `json:"charge"`
	IsDriving Field `json:"isDriving"`
	InTransit Field `json:"inTransit"`
	Speed     Field `json:"speed"`
}

// PersonState is the payload of a "person" event. ID is the stable key.
type PersonState struct {
	ID        Label    `json:"id"`
	Location  Location `json:"location"`
	Avatar    Label    `json:"avatar"`
	FirstName Label    `json:"firstName"`
	LastName  Label    `json:"lastName"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite.
func (l LatLng) Valid() bool {
	return finite(l.Lat) && finite(l.Lng)
}

// MarshalJSON writes non-finite coordinates as null.
func (l LatLng) MarshalJSON() ([]byte, error) {
	return []byte(`{"lat":` + jsonNumber(l.Lat) + `,"lng":` + jsonNumber(l.Lng) + `}`), nil
}

func jsonNumber(f float64) string {
	if !finite(f) {
		return "null"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Icon is an image marker resource. Size and Anchor are in pixels.
type Icon struct {
	URL    string `json:"iconUrl"`
	Size   [2]int `json:"iconSize"`
	Anchor [2]int `json:"iconAnchor"`
}

type MarkerKind string

const (
	KindVehicle MarkerKind = "vehicle"
	KindPerson  MarkerKind = "person"
)

// Marker is a positioned, icon-bearing overlay with a popup.
type Marker struct {
	ID       string        `json:"id"`
	Kind     MarkerKind    `json:"kind"`
	Position LatLng        `json:"position"`
	Icon     Icon          `json:"icon"`
	Popup    template.HTML `json:"popup"`
}

// TileLayer is the base map layer.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MinZoom     int    `json:"minZoom"`
	MaxZoom     int    `json:"maxZoom"`
}

type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// Map describes the map canvas bound to a container element.
type Map struct {
	Container         string    `json:"container"`
	Tiles             TileLayer `json:"tiles"`
	FullscreenControl bool      `json:"fullscreenControl"`
	View              Viewport  `json:"view"`
}
