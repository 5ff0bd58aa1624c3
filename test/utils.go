package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Yulian302/lfusys-renewal-map/services/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Backend is a fake renewal-map API. Handlers can be swapped between
// requests; every request is recorded.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	zones    http.HandlerFunc
	nearby   http.HandlerFunc
	requests []*http.Request
	bodies   [][]byte
}

func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		zones:  ZonesHandler(nil),
		nearby: NearbyHandler(nil),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/server/xinbei/geolocation-json", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		h := b.zones
		b.mu.Unlock()
		h(w, r)
	})
	mux.HandleFunc("/api/v1/server/xinbei/calc-distance", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		h := b.nearby
		b.mu.Unlock()
		h(w, r)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) SetZones(h http.HandlerFunc) {
	b.mu.Lock()
	b.zones = h
	b.mu.Unlock()
}

func (b *Backend) SetNearby(h http.HandlerFunc) {
	b.mu.Lock()
	b.nearby = h
	b.mu.Unlock()
}

func (b *Backend) Requests() []*http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*http.Request(nil), b.requests...)
}

// NearbyRequests returns the decoded nearby request bodies in arrival order.
func (b *Backend) NearbyRequests() []types.NearbyRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.NearbyRequest
	for i, r := range b.requests {
		if r.Method != http.MethodPost {
			continue
		}
		var req types.NearbyRequest
		if err := json.Unmarshal(b.bodies[i], &req); err == nil {
			out = append(out, req)
		}
	}
	return out
}

func (b *Backend) record(r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	b.mu.Lock()
	b.requests = append(b.requests, r.Clone(r.Context()))
	b.bodies = append(b.bodies, body)
	b.mu.Unlock()
}

func ZonesHandler(features []*geojson.Feature) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp types.GeoJSONResponse
		resp.Result.Features = features
		if resp.Result.Features == nil {
			resp.Result.Features = []*geojson.Feature{}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func NearbyHandler(items []types.NearbyItem) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, types.NearbyResponse{Result: items, TOD: len(items) > 0})
	}
}

func StatusHandler(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Square builds a square polygon feature with its south-west corner at
// lng, lat.
func Square(lng, lat, size float64) *geojson.Feature {
	return geojson.NewFeature(orb.Polygon{orb.Ring{
		{lng, lat},
		{lng + size, lat},
		{lng + size, lat + size},
		{lng, lat + size},
	}})
}
