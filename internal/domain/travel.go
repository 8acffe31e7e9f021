package domain

// Record is an opaque provider payload relayed to the caller as-is.
type Record = map[string]any

type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string // YYYY-MM-DD
	Adults        int
}

type VisaQuery struct {
	Origin      string `validate:"len=2"`
	Destination string `validate:"len=2"`
	Nationality string `validate:"len=2"`
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// GeoCode is the optional coordinate pair carried by a location match.
type GeoCode struct {
	Latitude  *float64
	Longitude *float64
}

// Coordinates reports the pair only when both values are present and non-zero.
// Zero is rejected to stay compatible with existing clients, which treat a zero
// coordinate as missing.
func (g GeoCode) Coordinates() (Coordinates, bool) {
	if g.Latitude == nil || g.Longitude == nil {
		return Coordinates{}, false
	}
	if *g.Latitude == 0 || *g.Longitude == 0 {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *g.Latitude, Longitude: *g.Longitude}, true
}
