package mapview

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyMounted = errors.New("mapview: already mounted")
	ErrUnknownEvent   = errors.New("mapview: unknown event")
)

const (
	// DefaultTileURL is the OpenStreetMap tile server template.
	DefaultTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultTileAttribution = `Map data © <a href="https://openstreetmap.org">OpenStreetMap</a> contributors`
	DefaultContainer       = "mapid"

	vehicleMarkerID = "vehicle"
)

var (
	personIconSize   = [2]int{67, 72}
	personIconAnchor = [2]int{33, 36}
)

// Hooks is the lifecycle a host framework drives a map view through.
type Hooks interface {
	OnMount(container string, attrs Attrs) error
	OnPersonUpdate(p PersonState)
	OnVehicleUpdate(v VehicleState)
	OnUnmount()
}

// Options configures a MapView.
type Options struct {
	Tiles  TileLayer
	Center LatLng
	Zoom   int
	// VehicleZoom is used when the view centers on the vehicle.
	VehicleZoom int
	// FollowVehicle recenters the view on every vehicle update instead of
	// only when the vehicle marker is first placed.
	FollowVehicle bool
	Icon          IconOptions
}

func DefaultOptions() Options {
	return Options{
		Tiles: TileLayer{
			URL:         DefaultTileURL,
			Attribution: DefaultTileAttribution,
			MinZoom:     8,
			MaxZoom:     19,
		},
		Center:      LatLng{Lat: -37.9, Lng: 145.2},
		Zoom:        13,
		VehicleZoom: 16,
	}
}

// Op names a change reported to a Sink.
type Op string

const (
	OpMount   Op = "mount"
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpView    Op = "view"
	OpUnmount Op = "unmount"
)

// Change is one mutation of the map. Marker and Map are copies.
type Change struct {
	Op     Op        `json:"op"`
	Map    *Map      `json:"map,omitempty"`
	Marker *Marker   `json:"marker,omitempty"`
	View   *Viewport `json:"view,omitempty"`
}

// Sink receives changes in the order they happen.
type Sink interface {
	Apply(Change)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Change)

func (f SinkFunc) Apply(c Change) { f(c) }

// MapView owns one map, its cluster layer, the vehicle marker and the
// person markers. Handlers run one at a time.
type MapView struct {
	mu   sync.Mutex
	opts Options
	sink Sink
	log  logrus.FieldLogger

	m       *Map
	cluster *ClusterLayer
	vehicle *Marker
	people  map[string]*Marker
}

var _ Hooks = (*MapView)(nil)

// New returns an unmounted view. A nil sink discards changes.
func New(opts Options, sink Sink, log logrus.FieldLogger) *MapView {
	if sink == nil {
		sink = SinkFunc(func(Change) {})
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MapView{opts: opts, sink: sink, log: log}
}

func (v *MapView) OnMount(container string, attrs Attrs) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m != nil {
		return ErrAlreadyMounted
	}
	if container == "" {
		container = DefaultContainer
	}
	v.m = &Map{
		Container:         container,
		Tiles:             v.opts.Tiles,
		FullscreenControl: true,
		View:              Viewport{Center: v.opts.Center, Zoom: v.opts.Zoom},
	}
	v.cluster = newClusterLayer()
	v.people = make(map[string]*Marker)

	if lat, lng := attrs.Float("data-latitude"), attrs.Float("data-longitude"); truthy(lat) && truthy(lng) {
		state := VehicleState{
			Latitude:  Num(lat),
			Longitude: Num(lng),
			Heading:   Num(attrs.Float("data-heading")),
		}
		doors := DoorStates{
			DF: attrs.Float("data-door-df"),
			DR: attrs.Float("data-door-dr"),
			PF: attrs.Float("data-door-pf"),
			PR: attrs.Float("data-door-pr"),
			FT: attrs.Float("data-door-ft"),
			RT: attrs.Float("data-door-rt"),
		}
		v.vehicle = &Marker{
			ID:       vehicleMarkerID,
			Kind:     KindVehicle,
			Position: LatLng{Lat: lat, Lng: lng},
			Icon:     RenderIcon(state.Heading.Float(), doors, v.opts.Icon),
			Popup:    VehiclePopup(state),
		}
		v.cluster.add(v.vehicle)
		v.m.View = Viewport{Center: v.vehicle.Position, Zoom: v.opts.VehicleZoom}
	}

	m := *v.m
	v.sink.Apply(Change{Op: OpMount, Map: &m})
	if v.vehicle != nil {
		v.emitMarker(OpAdd, v.vehicle)
	}
	v.log.WithFields(logrus.Fields{
		"container": container,
		"vehicle":   v.vehicle != nil,
	}).Debug("map mounted")
	return nil
}

func (v *MapView) OnPersonUpdate(p PersonState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := string(p.ID)
	if v.m == nil {
		v.log.WithField("person", id).Warn("person update while unmounted; dropped")
		return
	}
	if id == "" {
		v.log.Warn("person update without id; dropped")
		return
	}
	pos := LatLng{Lat: p.Location.Latitude.Float(), Lng: p.Location.Longitude.Float()}
	icon := Icon{URL: string(p.Avatar), Size: personIconSize, Anchor: personIconAnchor}
	popup := PersonPopup(p)

	if m, ok := v.people[id]; ok {
		m.Position = pos
		m.Icon = icon
		m.Popup = popup
		v.emitMarker(OpUpdate, m)
		return
	}
	m := &Marker{
		ID:       "person:" + id,
		Kind:     KindPerson,
		Position: pos,
		Icon:     icon,
		Popup:    popup,
	}
	v.people[id] = m
	v.cluster.add(m)
	v.emitMarker(OpAdd, m)
}

func (v *MapView) OnVehicleUpdate(s VehicleState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m == nil {
		v.log.Warn("vehicle update while unmounted; dropped")
		return
	}
	if !s.Latitude.Truthy() || !s.Longitude.Truthy() {
		v.log.WithFields(logrus.Fields{
			"latitude":  s.Latitude.String(),
			"longitude": s.Longitude.String(),
		}).Warn("vehicle update without position; dropped")
		return
	}
	pos := LatLng{Lat: s.Latitude.Float(), Lng: s.Longitude.Float()}
	icon := RenderIcon(s.Heading.Float(), s.Doors(), v.opts.Icon)
	popup := VehiclePopup(s)

	if v.vehicle != nil {
		v.vehicle.Position = pos
		v.vehicle.Icon = icon
		v.vehicle.Popup = popup
		v.emitMarker(OpUpdate, v.vehicle)
		if v.opts.FollowVehicle {
			v.setView(pos, v.opts.VehicleZoom)
		}
		return
	}
	v.vehicle = &Marker{
		ID:       vehicleMarkerID,
		Kind:     KindVehicle,
		Position: pos,
		Icon:     icon,
		Popup:    popup,
	}
	v.cluster.add(v.vehicle)
	v.emitMarker(OpAdd, v.vehicle)
	v.setView(pos, v.opts.VehicleZoom)
}

func (v *MapView) OnUnmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m == nil {
		return
	}
	v.sink.Apply(Change{Op: OpUnmount})
	v.m = nil
	v.cluster = nil
	v.vehicle = nil
	v.people = nil
	v.log.Debug("map unmounted")
}

// Dispatch decodes a named push event and routes it to its handler.
func (v *MapView) Dispatch(event string, payload []byte) error {
	switch event {
	case EventPerson:
		var p PersonState
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode %s event: %w", event, err)
		}
		v.OnPersonUpdate(p)
	case EventVehicle:
		var s VehicleState
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("decode %s event: %w", event, err)
		}
		v.OnVehicleUpdate(s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return nil
}

func (v *MapView) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.m != nil
}

// View returns the current viewport; ok is false when unmounted.
func (v *MapView) View() (Viewport, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m == nil {
		return Viewport{}, false
	}
	return v.m.View, true
}

// Vehicle returns a copy of the vehicle marker.
func (v *MapView) Vehicle() (Marker, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.vehicle == nil {
		return Marker{}, false
	}
	return *v.vehicle, true
}

// Person returns a copy of the marker for a person id.
func (v *MapView) Person(id string) (Marker, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, ok := v.people[id]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

// PersonIDs lists tracked person ids in sorted order.
func (v *MapView) PersonIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.people))
	for id := range v.people {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Markers returns copies of every marker in the cluster layer, in insertion order.
func (v *MapView) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cluster == nil {
		return nil
	}
	return v.cluster.snapshot()
}

func (v *MapView) MarkerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cluster == nil {
		return 0
	}
	return v.cluster.size()
}

func (v *MapView) setView(center LatLng, zoom int) {
	v.m.View = Viewport{Center: center, Zoom: zoom}
	view := v.m.View
	v.sink.Apply(Change{Op: OpView, View: &view})
}

func (v *MapView) emitMarker(op Op, m *Marker) {
	c := *m
	v.sink.Apply(Change{Op: op, Marker: &c})
}

func truthy(f float64) bool {
	return f != 0 && !math.IsNaN(f)
}
