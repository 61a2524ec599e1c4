package mapview

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFieldUnmarshal(t *testing.T) {
	tests := []struct {
		in     string
		set    bool
		num    float64 // NaN means "expect NaN"
		text   string
		truthy bool
	}{
		{`null`, false, math.NaN(), "", false},
		{`12.5`, true, 12.5, "12.5", true},
		{`0`, true, 0, "0", false},
		{`true`, true, 1, "true", true},
		{`false`, true, 0, "false", false},
		{`"-37.9"`, true, -37.9, "-37.9", true},
		{`"home"`, true, math.NaN(), "home", false},
		{`{"a":1}`, true, math.NaN(), `{"a":1}`, false},
	}
	for _, tt := range tests {
		var f Field
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if f.IsSet() != tt.set {
			t.Errorf("%s: set = %v", tt.in, f.IsSet())
		}
		got := f.Float()
		if math.IsNaN(tt.num) {
			if !math.IsNaN(got) {
				t.Errorf("%s: num = %v, want NaN", tt.in, got)
			}
		} else if got != tt.num {
			t.Errorf("%s: num = %v, want %v", tt.in, got, tt.num)
		}
		if f.String() != tt.text {
			t.Errorf("%s: text = %q, want %q", tt.in, f.String(), tt.text)
		}
		if f.Truthy() != tt.truthy {
			t.Errorf("%s: truthy = %v", tt.in, f.Truthy())
		}
	}
}

func TestFieldMissingFromPayload(t *testing.T) {
	var v VehicleState
	if err := json.Unmarshal([]byte(`{"longitude":145.2}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Latitude.IsSet() || !math.IsNaN(v.Latitude.Float()) {
		t.Errorf("latitude = %+v", v.Latitude)
	}
}

func TestFieldRoundTripsPayload(t *testing.T) {
	in := `{"latitude":-37.9,"longitude":"145.2","heading":null,"doors_open":true,"trunk_open":false,"frunk_open":0,"speed":null,"windows_open":null,"plugged_in":null,"geofence":"Home","is_user_present":null,"locked":true,"state":"online"}`
	var v VehicleState
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != in {
		t.Errorf("round trip:\n got %s\nwant %s", out, in)
	}
}

func TestNumMarshalsNonFiniteAsString(t *testing.T) {
	out, err := json.Marshal(struct {
		A Field `json:"a"`
		B Field `json:"b"`
	}{Num(math.NaN()), Num(3)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":"NaN","b":3}` {
		t.Errorf("got %s", out)
	}
}

func TestLabelUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{`"p1"`, "p1"},
		{`42`, "42"},
		{`-1.5`, "-1.5"},
		{`true`, "true"},
		{`null`, ""},
		{`""`, ""},
	}
	for _, tt := range tests {
		var l Label
		if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if l != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, l, tt.want)
		}
	}
}

func TestAttrsFloat(t *testing.T) {
	a := Attrs{"data-heading": " 90 ", "data-latitude": "north", "data-door-df": ""}
	if got := a.Float("data-heading"); got != 90 {
		t.Errorf("heading = %v, want 90", got)
	}
	for _, name := range []string{"data-latitude", "data-door-df", "data-longitude"} {
		if got := a.Float(name); !math.IsNaN(got) {
			t.Errorf("%s = %v, want NaN", name, got)
		}
	}
	var none Attrs
	if got := none.Float("data-heading"); !math.IsNaN(got) {
		t.Errorf("nil attrs = %v, want NaN", got)
	}
}
