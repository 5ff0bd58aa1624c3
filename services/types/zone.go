package types

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

type GeoJSONResponse struct {
	Result struct {
		Features []*geojson.Feature `json:"features"`
	} `json:"result"`
}

// RenewalZone wraps one feature. ID is the feature's index in the response
// it came from, so it is only meaningful within a single fetch.
type RenewalZone struct {
	ID          int              `json:"id"`
	GeoJSONData *geojson.Feature `json:"geoJsonData"`
}

// DefaultCenter is used when a zone has no usable ring (Taipei 101).
var DefaultCenter = [2]float64{25.033, 121.565}

// ZoneFromWKT builds a zone from a `POLYGON((lng lat, ...))` string.
func ZoneFromWKT(id int, s string) (RenewalZone, error) {
	poly, err := wkt.UnmarshalPolygon(s)
	if err != nil {
		return RenewalZone{}, fmt.Errorf("parse wkt polygon: %w", err)
	}
	return RenewalZone{ID: id, GeoJSONData: geojson.NewFeature(poly)}, nil
}

// Boundary returns the outer ring of the zone as [lat, lng] pairs. GeoJSON
// stores positions as [lng, lat]. For a MultiPolygon the first polygon wins.
func (z RenewalZone) Boundary() [][2]float64 {
	return latLngs(z.outerRing())
}

// Center is the arithmetic mean of the boundary points.
func (z RenewalZone) Center() [2]float64 {
	ring := z.outerRing()
	if len(ring) == 0 {
		return DefaultCenter
	}
	var lat, lng float64
	for _, p := range ring {
		lat += p.Lat()
		lng += p.Lon()
	}
	n := float64(len(ring))
	return [2]float64{lat / n, lng / n}
}

func (z RenewalZone) outerRing() orb.Ring {
	if z.GeoJSONData == nil {
		return nil
	}
	switch g := z.GeoJSONData.Geometry.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			return g[0]
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0][0]
		}
	}
	return nil
}

// ParseWKT reads the outer ring of a `POLYGON((lng lat, ...))` string as
// [lat, lng] pairs.
func ParseWKT(s string) ([][2]float64, error) {
	z, err := ZoneFromWKT(0, s)
	if err != nil {
		return nil, err
	}
	return z.Boundary(), nil
}

func latLngs(ring orb.Ring) [][2]float64 {
	out := make([][2]float64, 0, len(ring))
	for _, p := range ring {
		out = append(out, [2]float64{p.Lat(), p.Lon()})
	}
	return out
}
