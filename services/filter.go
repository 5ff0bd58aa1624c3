package services

import (
	"strings"

	"github.com/Yulian302/lfusys-renewal-map/services/types"
)

// FilterStops keeps the stops whose stop_name or name contains query,
// ignoring case. An empty query keeps everything.
func FilterStops(stops []types.NearbyItem, query string) []types.NearbyItem {
	q := strings.ToLower(query)
	out := make([]types.NearbyItem, 0, len(stops))
	for _, s := range stops {
		if q == "" ||
			strings.Contains(strings.ToLower(s.StopName), q) ||
			strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	return out
}
