package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection exports markers as GeoJSON points. Markers without a
// valid position are left out.
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		if !m.Position.Valid() {
			continue
		}
		f := geojson.NewFeature(orb.Point{m.Position.Lng, m.Position.Lat})
		f.ID = m.ID
		f.Properties["kind"] = string(m.Kind)
		f.Properties["icon"] = m.Icon.URL
		fc.Append(f)
	}
	return fc
}
