package types

type NearbyRequest struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type NearbyResponse struct {
	Result []NearbyItem `json:"result"`
	TOD    bool         `json:"tod"`
}

// NearbyItem is a transit-oriented-development stop with its distance from
// the query point, passed through as the backend returns it.
type NearbyItem struct {
	ID        int     `json:"id"`
	StopName  string  `json:"stop_name"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Radius    float64 `json:"radius"`
	IsTOD     int     `json:"is_tod"`
	Distance  float64 `json:"distance"`
}
