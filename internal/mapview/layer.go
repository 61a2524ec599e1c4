package mapview

import (
	"net/url"
	"strings"
)

// ClusterLayer groups markers; the client clusters nearby ones at low zoom.
type ClusterLayer struct {
	markers []*Marker
}

func newClusterLayer() *ClusterLayer {
	return &ClusterLayer{}
}

func (c *ClusterLayer) add(m *Marker) {
	c.markers = append(c.markers, m)
}

func (c *ClusterLayer) size() int { return len(c.markers) }

func (c *ClusterLayer) snapshot() []Marker {
	out := make([]Marker, 0, len(c.markers))
	for _, m := range c.markers {
		out = append(out, *m)
	}
	return out
}

// Attrs are the data-* attributes of the host element at mount time.
type Attrs map[string]string

// AttrsFromQuery collects data-* query parameters.
func AttrsFromQuery(q url.Values) Attrs {
	a := make(Attrs)
	for k, vs := range q {
		if strings.HasPrefix(k, "data-") && len(vs) > 0 {
			a[k] = vs[0]
		}
	}
	return a
}

// Float parses an attribute; missing or malformed values are NaN.
func (a Attrs) Float(name string) float64 {
	return parseNumber(a[name])
}
