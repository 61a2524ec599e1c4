package mapview

import (
	"encoding/xml"
	"fmt"
	"math"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// arrowPath is the heading arrow drawn inside the 20x20 vehicle box.
const arrowPath = "M 0,0 L 5,0 M 0,0 L 0,5 M 0,0 L 20,20 M 15, 5 L 5, 15"

var vehicleIconSize = [2]int{64, 64}

// IconOptions tweaks the vehicle icon.
type IconOptions struct {
	// ShowBody draws the vehicle outline under the heading arrow.
	ShowBody bool
}

type svgDoc struct {
	XMLName xml.Name `xml:"svg"`
	Xmlns   string   `xml:"xmlns,attr"`
	ViewBox string   `xml:"viewBox,attr"`
	Group   svgGroup `xml:"g"`
}

type svgGroup struct {
	Transform string     `xml:"transform,attr,omitempty"`
	Rects     []svgRect  `xml:"rect"`
	Paths     []svgPath  `xml:"path"`
	Lines     []svgLine  `xml:"line"`
	Groups    []svgGroup `xml:"g"`
}

type svgRect struct {
	Stroke      string `xml:"stroke,attr"`
	StrokeWidth string `xml:"stroke-width,attr"`
	Fill        string `xml:"fill,attr"`
	X           int    `xml:"x,attr"`
	Y           int    `xml:"y,attr"`
	Height      int    `xml:"height,attr"`
	Width       int    `xml:"width,attr"`
}

type svgPath struct {
	Fill        string `xml:"fill,attr"`
	D           string `xml:"d,attr"`
	Stroke      string `xml:"stroke,attr"`
	StrokeWidth string `xml:"stroke-width,attr"`
}

type svgLine struct {
	Fill        string `xml:"fill,attr"`
	X1          int    `xml:"x1,attr"`
	Y1          int    `xml:"y1,attr"`
	X2          int    `xml:"x2,attr"`
	Y2          int    `xml:"y2,attr"`
	Stroke      string `xml:"stroke,attr"`
	StrokeWidth string `xml:"stroke-width,attr"`
}

// RenderVehicleIcon draws the vehicle icon for v with default options.
func RenderVehicleIcon(v VehicleState) Icon {
	return RenderIcon(v.Heading.Float(), v.Doors(), IconOptions{})
}

// RenderIcon builds the vehicle SVG for a heading in degrees and a set of
// door states, and wraps it as a 64x64 data URI icon anchored at its center.
// The result depends only on its arguments.
func RenderIcon(heading float64, doors DoorStates, opts IconOptions) Icon {
	outer := svgGroup{
		Transform: fmt.Sprintf("rotate(%s,10,10)", headingDegrees(heading)),
		Groups: []svgGroup{
			body(opts.ShowBody),
			door(doors.DF, 15, 0, -10),
			door(doors.DR, 15, 10, -10),
			door(doors.PF, 5, 0, 10),
			door(doors.PR, 5, 10, 10),
			trunk(doors.FT, 5, 0),
			trunk(doors.RT, 5, 20),
		},
	}
	doc := svgDoc{
		Xmlns:   svgNamespace,
		ViewBox: "-5 -5 30 30",
		Group:   outer,
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		// only plain strings and ints are marshalled
		panic(fmt.Sprintf("mapview: marshal vehicle icon: %v", err))
	}
	return Icon{
		URL:    "data:image/svg+xml;utf8," + string(out),
		Size:   vehicleIconSize,
		Anchor: [2]int{vehicleIconSize[0] / 2, vehicleIconSize[1] / 2},
	}
}

// headingDegrees truncates heading to whole degrees in [0, 360).
func headingDegrees(heading float64) string {
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return "NaN"
	}
	deg := math.Mod(math.Trunc(heading), 360)
	if deg < 0 {
		deg += 360
	}
	return formatNumber(deg)
}

func body(show bool) svgGroup {
	g := svgGroup{
		Groups: []svgGroup{{
			Transform: "rotate(45,10,10)",
			Paths: []svgPath{{
				Fill:        "none",
				D:           arrowPath,
				Stroke:      "red",
				StrokeWidth: "0.5",
			}},
		}},
	}
	if show {
		g.Rects = []svgRect{{
			Stroke:      "black",
			StrokeWidth: "0.5",
			Fill:        "white",
			X:           5,
			Y:           0,
			Height:      20,
			Width:       10,
		}}
	}
	return g
}

func door(state float64, x, y int, factor float64) svgGroup {
	return indicator(state, x, y, formatNumber(state*factor))
}

// trunk indicators swing the same way whatever their state.
func trunk(state float64, x, y int) svgGroup {
	return indicator(state, x, y, "-90")
}

func indicator(state float64, x, y int, angle string) svgGroup {
	stroke, width := "green", "0"
	if state > 0 {
		stroke, width = "red", "1"
	}
	return svgGroup{
		Transform: fmt.Sprintf("translate(%d,%d)", x, y),
		Groups: []svgGroup{{
			Transform: fmt.Sprintf("rotate(%s,0,0)", angle),
			Lines: []svgLine{{
				Fill:        "none",
				X2:          0,
				Y2:          10,
				Stroke:      stroke,
				StrokeWidth: width,
			}},
		}},
	}
}
