package mapview

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recorder struct {
	changes []Change
}

func (r *recorder) Apply(c Change) { r.changes = append(r.changes, c) }

func (r *recorder) ops() []Op {
	out := make([]Op, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Op)
	}
	return out
}

func newTestView(t *testing.T, opts Options) (*MapView, *recorder, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	rec := &recorder{}
	v := New(opts, rec, logger)
	if err := v.OnMount("mapid", nil); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return v, rec, hook
}

func person(id string, lat, lng float64) PersonState {
	return PersonState{
		ID: Label(id),
		Location: Location{
			Latitude:  Num(lat),
			Longitude: Num(lng),
			Battery:   Num(80),
			IsDriving: Bool(false),
		},
		Avatar:    "a.png",
		FirstName: "A",
		LastName:  "B",
	}
}

func TestPersonUpdateKeepsOneMarkerPerID(t *testing.T) {
	v, rec, _ := newTestView(t, DefaultOptions())

	v.OnPersonUpdate(person("p1", -37.9, 145.2))
	if got := v.MarkerCount(); got != 1 {
		t.Fatalf("marker count = %d, want 1", got)
	}
	m, ok := v.Person("p1")
	if !ok {
		t.Fatal("no marker for p1")
	}
	if m.Position != (LatLng{Lat: -37.9, Lng: 145.2}) {
		t.Errorf("position = %+v", m.Position)
	}

	v.OnPersonUpdate(person("p1", -38.1, 145.5))
	if got := v.MarkerCount(); got != 1 {
		t.Fatalf("marker count after second update = %d, want 1", got)
	}
	m, _ = v.Person("p1")
	if m.Position != (LatLng{Lat: -38.1, Lng: 145.5}) {
		t.Errorf("position after update = %+v", m.Position)
	}

	want := []Op{OpMount, OpAdd, OpUpdate}
	if got := rec.ops(); !equalOps(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestPersonMarkerIconAndPopup(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())
	p := person("p1", -37.9, 145.2)
	v.OnPersonUpdate(p)

	p.Avatar = "b.png"
	p.FirstName = "C"
	v.OnPersonUpdate(p)

	m, _ := v.Person("p1")
	if m.Icon.URL != "b.png" || m.Icon.Size != [2]int{67, 72} || m.Icon.Anchor != [2]int{33, 36} {
		t.Errorf("icon = %+v", m.Icon)
	}
	if !strings.Contains(string(m.Popup), "<td>C/B</td>") {
		t.Errorf("popup not refreshed: %s", m.Popup)
	}
}

func TestPersonsWithDistinctIDs(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())
	v.OnPersonUpdate(person("p2", 1, 1))
	v.OnPersonUpdate(person("p1", 2, 2))
	v.OnPersonUpdate(person("p2", 3, 3))

	if got := v.MarkerCount(); got != 2 {
		t.Fatalf("marker count = %d, want 2", got)
	}
	ids := v.PersonIDs()
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestPersonWithoutIDDropped(t *testing.T) {
	v, _, hook := newTestView(t, DefaultOptions())
	v.OnPersonUpdate(person("", 1, 1))
	if got := v.MarkerCount(); got != 0 {
		t.Fatalf("marker count = %d, want 0", got)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Errorf("expected a warning, got %v", e)
	}
}

func TestVehicleUpdateWithoutLatitudeIsIgnored(t *testing.T) {
	v, rec, hook := newTestView(t, DefaultOptions())
	before := len(rec.changes)

	if err := v.Dispatch(EventVehicle, []byte(`{"latitude":null,"longitude":145.2,"heading":90}`)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, ok := v.Vehicle(); ok {
		t.Fatal("vehicle marker created without latitude")
	}
	if len(rec.changes) != before {
		t.Errorf("changes emitted: %v", rec.ops()[before:])
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %v", e)
	}
	if e.Data["longitude"] != "145.2" {
		t.Errorf("warning fields = %v", e.Data)
	}
}

func TestVehicleUpdateMissingPositionKeepsExistingMarker(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())
	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.8), Longitude: Num(145.1), Heading: Num(10)})
	first, _ := v.Vehicle()

	v.OnVehicleUpdate(VehicleState{Longitude: Num(145.9), Heading: Num(270)})
	v.OnVehicleUpdate(VehicleState{Latitude: Num(0), Longitude: Num(145.9)})
	v.OnVehicleUpdate(VehicleState{Latitude: Text("abc"), Longitude: Num(145.9)})

	got, _ := v.Vehicle()
	if got != first {
		t.Errorf("vehicle marker changed:\n got %+v\nwant %+v", got, first)
	}
}

func TestVehicleCreateThenUpdate(t *testing.T) {
	v, rec, _ := newTestView(t, DefaultOptions())

	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.8), Longitude: Num(145.1), Heading: Num(0)})
	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.7), Longitude: Num(145.0), Heading: Num(90), DoorsOpen: Num(1)})

	if got := v.MarkerCount(); got != 1 {
		t.Fatalf("marker count = %d, want 1", got)
	}
	m, _ := v.Vehicle()
	if m.Position != (LatLng{Lat: -37.7, Lng: 145.0}) {
		t.Errorf("position = %+v", m.Position)
	}
	if !strings.Contains(m.Icon.URL, "rotate(90,10,10)") || !strings.Contains(m.Icon.URL, `stroke="red"`) {
		t.Errorf("icon not regenerated: %s", m.Icon.URL)
	}

	// the view follows the vehicle only when its marker is placed
	want := []Op{OpMount, OpAdd, OpView, OpUpdate}
	if got := rec.ops(); !equalOps(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	view, _ := v.View()
	if view.Center != (LatLng{Lat: -37.8, Lng: 145.1}) || view.Zoom != 16 {
		t.Errorf("view = %+v", view)
	}
}

func TestFollowVehicleRecentersEveryUpdate(t *testing.T) {
	opts := DefaultOptions()
	opts.FollowVehicle = true
	v, rec, _ := newTestView(t, opts)

	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.8), Longitude: Num(145.1)})
	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.7), Longitude: Num(145.0)})

	want := []Op{OpMount, OpAdd, OpView, OpUpdate, OpView}
	if got := rec.ops(); !equalOps(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
	view, _ := v.View()
	if view.Center != (LatLng{Lat: -37.7, Lng: 145.0}) {
		t.Errorf("view = %+v", view)
	}
}

func TestMountDefaults(t *testing.T) {
	rec := &recorder{}
	v := New(DefaultOptions(), rec, nil)
	if err := v.OnMount("", nil); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if len(rec.changes) != 1 || rec.changes[0].Map == nil {
		t.Fatalf("changes = %+v", rec.changes)
	}
	m := rec.changes[0].Map
	if m.Container != DefaultContainer || !m.FullscreenControl {
		t.Errorf("map = %+v", m)
	}
	if m.Tiles.URL != DefaultTileURL || m.Tiles.MinZoom != 8 || m.Tiles.MaxZoom != 19 {
		t.Errorf("tiles = %+v", m.Tiles)
	}
	if m.View.Center != (LatLng{Lat: -37.9, Lng: 145.2}) || m.View.Zoom != 13 {
		t.Errorf("view = %+v", m.View)
	}
	if err := v.OnMount("mapid", nil); !errors.Is(err, ErrAlreadyMounted) {
		t.Errorf("second mount err = %v, want ErrAlreadyMounted", err)
	}
}

func TestMountWithVehicleAttrs(t *testing.T) {
	rec := &recorder{}
	v := New(DefaultOptions(), rec, nil)
	attrs := Attrs{
		"data-latitude":  "-37.81",
		"data-longitude": "144.96",
		"data-heading":   "180",
		"data-door-df":   "1",
		"data-door-rt":   "1",
	}
	if err := v.OnMount("mapid", attrs); err != nil {
		t.Fatalf("mount: %v", err)
	}
	m, ok := v.Vehicle()
	if !ok {
		t.Fatal("initial vehicle marker missing")
	}
	want := RenderIcon(180, DoorStates{DF: 1, DR: nan(), PF: nan(), PR: nan(), FT: nan(), RT: 1}, IconOptions{})
	if m.Icon != want {
		t.Errorf("icon = %s\nwant %s", m.Icon.URL, want.URL)
	}
	view, _ := v.View()
	if view.Center != (LatLng{Lat: -37.81, Lng: 144.96}) || view.Zoom != 16 {
		t.Errorf("view = %+v", view)
	}
	if got := rec.ops(); !equalOps(got, []Op{OpMount, OpAdd}) {
		t.Errorf("ops = %v", got)
	}

	// a vehicle present from mount is not recentered by later pushes
	v.OnVehicleUpdate(VehicleState{Latitude: Num(-37.0), Longitude: Num(145.0)})
	view, _ = v.View()
	if view.Center != (LatLng{Lat: -37.81, Lng: 144.96}) {
		t.Errorf("view moved to %+v", view.Center)
	}
}

func TestMountWithMalformedAttrsSkipsVehicle(t *testing.T) {
	v := New(DefaultOptions(), nil, nil)
	if err := v.OnMount("mapid", Attrs{"data-latitude": "north", "data-longitude": "144.96"}); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, ok := v.Vehicle(); ok {
		t.Error("vehicle marker created from malformed attrs")
	}
}

func TestUnmountReleasesEverything(t *testing.T) {
	v, rec, hook := newTestView(t, DefaultOptions())
	v.OnPersonUpdate(person("p1", 1, 1))
	v.OnVehicleUpdate(VehicleState{Latitude: Num(1), Longitude: Num(1)})

	v.OnUnmount()
	if v.Mounted() {
		t.Fatal("still mounted")
	}
	if v.MarkerCount() != 0 || len(v.PersonIDs()) != 0 || v.Markers() != nil {
		t.Error("markers survived unmount")
	}
	if _, ok := v.Vehicle(); ok {
		t.Error("vehicle survived unmount")
	}
	if _, ok := v.View(); ok {
		t.Error("view survived unmount")
	}
	if last := rec.changes[len(rec.changes)-1]; last.Op != OpUnmount {
		t.Errorf("last op = %s", last.Op)
	}

	v.OnPersonUpdate(person("p1", 1, 1))
	if v.MarkerCount() != 0 {
		t.Error("update applied while unmounted")
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Errorf("expected a warning, got %v", e)
	}

	// remounting starts from an empty registry
	if err := v.OnMount("mapid", nil); err != nil {
		t.Fatalf("remount: %v", err)
	}
	if v.MarkerCount() != 0 {
		t.Errorf("marker count after remount = %d", v.MarkerCount())
	}
}

func TestDispatch(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())

	payload := `{"id":"p1","location":{"latitude":-37.9,"longitude":145.2,"battery":"55","charge":true},"avatar":"a.png","firstName":"A","lastName":"B"}`
	if err := v.Dispatch(EventPerson, []byte(payload)); err != nil {
		t.Fatalf("dispatch person: %v", err)
	}
	if _, ok := v.Person("p1"); !ok {
		t.Error("person not routed")
	}

	if err := v.Dispatch(EventVehicle, []byte(`{"latitude":-37.9,"longitude":145.2,"heading":"45","doors_open":false}`)); err != nil {
		t.Fatalf("dispatch vehicle: %v", err)
	}
	if _, ok := v.Vehicle(); !ok {
		t.Error("vehicle not routed")
	}

	if err := v.Dispatch("presence", []byte(`{}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("unknown event err = %v", err)
	}
	if err := v.Dispatch(EventPerson, []byte(`{"id":`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestDispatchLooselyTypedPerson(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())

	if err := v.Dispatch(EventPerson, []byte(`{"id":42,"location":{"latitude":-37.9,"longitude":145.2},"avatar":"a.png","firstName":"A","lastName":"B"}`)); err != nil {
		t.Fatalf("numeric id: %v", err)
	}
	if _, ok := v.Person("42"); !ok {
		t.Fatalf("no marker for numeric id; ids = %v", v.PersonIDs())
	}

	if err := v.Dispatch(EventPerson, []byte(`{"id":"p2","location":{"latitude":1,"longitude":2},"avatar":null,"firstName":7,"lastName":true}`)); err != nil {
		t.Fatalf("non-string name: %v", err)
	}
	m, ok := v.Person("p2")
	if !ok {
		t.Fatal("no marker for p2")
	}
	if !strings.Contains(string(m.Popup), "<td>7/true</td>") {
		t.Errorf("popup = %s", m.Popup)
	}
	if m.Icon.URL != "" {
		t.Errorf("icon url = %q, want empty", m.Icon.URL)
	}

	// a repeated numeric id updates the same marker
	if err := v.Dispatch(EventPerson, []byte(`{"id":42,"location":{"latitude":-38,"longitude":145.2}}`)); err != nil {
		t.Fatal(err)
	}
	if got := v.MarkerCount(); got != 2 {
		t.Errorf("marker count = %d, want 2", got)
	}
}

func TestMarkersInInsertionOrder(t *testing.T) {
	v, _, _ := newTestView(t, DefaultOptions())
	v.OnPersonUpdate(person("p1", 1, 1))
	v.OnVehicleUpdate(VehicleState{Latitude: Num(2), Longitude: Num(2)})
	v.OnPersonUpdate(person("p0", 3, 3))

	ms := v.Markers()
	if len(ms) != 3 {
		t.Fatalf("markers = %d", len(ms))
	}
	if ms[0].ID != "person:p1" || ms[1].ID != "vehicle" || ms[2].ID != "person:p0" {
		t.Errorf("order = %s, %s, %s", ms[0].ID, ms[1].ID, ms[2].ID)
	}
}

func equalOps(a, b []Op) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
