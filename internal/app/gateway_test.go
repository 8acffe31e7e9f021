package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_gateway/internal/app"
	"travel_gateway/internal/domain"
)

// ---- fakes ----

type fakeTravel struct {
	locations []domain.Record
	results   []domain.Record
	err       error
	locErr    error

	calls map[string]int
	at    domain.Coordinates
}

func (f *fakeTravel) hit(op string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeTravel) SearchFlights(ctx context.Context, q domain.FlightQuery) ([]domain.Record, error) {
	f.hit("flights")
	return f.results, f.err
}
func (f *fakeTravel) NearestAirports(ctx context.Context, at domain.Coordinates) ([]domain.Record, error) {
	f.hit("airports")
	f.at = at
	return f.results, f.err
}
func (f *fakeTravel) SearchHotels(ctx context.Context, cityCode string) ([]domain.Record, error) {
	f.hit("hotels")
	return f.results, f.err
}
func (f *fakeTravel) SearchActivities(ctx context.Context, at domain.Coordinates) ([]domain.Record, error) {
	f.hit("activities")
	f.at = at
	return f.results, f.err
}
func (f *fakeTravel) SearchLocation(ctx context.Context, keyword string) ([]domain.Record, error) {
	f.hit("location")
	return f.locations, f.locErr
}
func (f *fakeTravel) SearchCars(ctx context.Context, cityCode string) ([]domain.Record, error) {
	f.hit("cars")
	return nil, &domain.Fault{Service: "amadeus", Op: "cars", Kind: domain.FaultNotImplemented}
}

type fakeVisa struct {
	rec any
	err error
}

func (f *fakeVisa) Requirements(ctx context.Context, q domain.VisaQuery) (any, error) {
	return f.rec, f.err
}

type fakeFaultLog struct{ events []domain.FaultEvent }

func (f *fakeFaultLog) RecordFault(ctx context.Context, ev domain.FaultEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func paris() domain.Record {
	return domain.Record{"geoCode": map[string]any{"latitude": 48.8566, "longitude": 2.3522}}
}

// ---- tests ----

func TestResolveCoordinates(t *testing.T) {
	upstream := &domain.Fault{Service: "amadeus", Op: "locations", Kind: domain.FaultUpstream, Status: 500}

	cases := []struct {
		name      string
		locations []domain.Record
		locErr    error
		want      error
	}{
		{"no match", nil, nil, domain.ErrLocationNotFound},
		{"search failed", nil, upstream, domain.ErrLocationNotFound},
		{"no geoCode", []domain.Record{{"name": "PARIS"}}, nil, domain.ErrNoCoordinates},
		{"empty geoCode", []domain.Record{{"geoCode": map[string]any{}}}, nil, domain.ErrNoCoordinates},
		{"missing latitude", []domain.Record{{"geoCode": map[string]any{"longitude": 2.35}}}, nil, domain.ErrInvalidCoordinates},
		{"null longitude", []domain.Record{{"geoCode": map[string]any{"latitude": 48.85, "longitude": nil}}}, nil, domain.ErrInvalidCoordinates},
		{"zero latitude", []domain.Record{{"geoCode": map[string]any{"latitude": 0.0, "longitude": 2.35}}}, nil, domain.ErrInvalidCoordinates},
		{"null geoCode", []domain.Record{{"geoCode": nil}}, nil, domain.ErrNoCoordinates},
		{"string geoCode", []domain.Record{{"geoCode": "48.85,2.35"}}, nil, domain.ErrInvalidCoordinates},
		{"list geoCode", []domain.Record{{"geoCode": []any{48.85, 2.35}}}, nil, domain.ErrInvalidCoordinates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := app.NewGateway(&fakeTravel{locations: tc.locations, locErr: tc.locErr}, &fakeVisa{}, nil)
			_, err := g.ResolveCoordinates(context.Background(), "Paris")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestResolveCoordinates_UsesFirstMatch(t *testing.T) {
	tr := &fakeTravel{locations: []domain.Record{
		{"geoCode": map[string]any{"latitude": json.Number("48.8566"), "longitude": json.Number("2.3522")}},
		{"geoCode": map[string]any{"latitude": 1.0, "longitude": 1.0}},
	}}
	g := app.NewGateway(tr, &fakeVisa{}, nil)

	at, err := g.ResolveCoordinates(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, at)
}

func TestNearestAirports_Chained(t *testing.T) {
	airports := []domain.Record{{"iataCode": "CDG"}, {"iataCode": "ORY"}}
	tr := &fakeTravel{locations: []domain.Record{paris()}, results: airports}
	g := app.NewGateway(tr, &fakeVisa{}, nil)

	got, err := g.NearestAirports(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, airports, got)
	assert.Equal(t, domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, tr.at)
	assert.Equal(t, map[string]int{"location": 1, "airports": 1}, tr.calls)
}

func TestSearchActivities_StopsWhenLocationUnusable(t *testing.T) {
	tr := &fakeTravel{locations: []domain.Record{{"name": "Atlantis"}}}
	g := app.NewGateway(tr, &fakeVisa{}, nil)

	_, err := g.SearchActivities(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrNoCoordinates)
	assert.Zero(t, tr.calls["activities"])
}

func TestSearchFlights_EmptyIsNoResults(t *testing.T) {
	g := app.NewGateway(&fakeTravel{results: []domain.Record{}}, &fakeVisa{}, nil)

	_, err := g.SearchFlights(context.Background(), domain.FlightQuery{Origin: "JFK", Destination: "LHR", DepartureDate: "2025-06-15", Adults: 1})
	require.ErrorIs(t, err, domain.ErrNoResults)
}

func TestSearchHotels_FaultIsRecorded(t *testing.T) {
	fl := &fakeFaultLog{}
	fault := &domain.Fault{Service: "amadeus", Op: "hotel-offers", Kind: domain.FaultUpstream, Status: 429}
	g := app.NewGateway(&fakeTravel{err: fault}, &fakeVisa{}, fl)

	_, err := g.SearchHotels(context.Background(), "PAR")
	require.True(t, domain.IsFault(err, domain.FaultUpstream))
	require.Len(t, fl.events, 1)
	assert.Equal(t, domain.FaultEvent{Service: "amadeus", Op: "hotel-offers", Kind: domain.FaultUpstream, Status: 429}, fl.events[0])
}

func TestSearchCars_NotImplementedIsNotRecorded(t *testing.T) {
	fl := &fakeFaultLog{}
	g := app.NewGateway(&fakeTravel{}, &fakeVisa{}, fl)

	_, err := g.SearchCars(context.Background(), "BCN")
	require.True(t, domain.IsFault(err, domain.FaultNotImplemented))
	assert.Empty(t, fl.events)
}

func TestVisaRequirements(t *testing.T) {
	q := domain.VisaQuery{Origin: "US", Destination: "FR", Nationality: "US"}

	t.Run("decision", func(t *testing.T) {
		rec := domain.Record{"data": map[string]any{"visaRequired": false}}
		got, err := app.NewGateway(&fakeTravel{}, &fakeVisa{rec: rec}, nil).VisaRequirements(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})
	t.Run("non-object payload", func(t *testing.T) {
		payload := []any{map[string]any{"type": "TRIP"}}
		got, err := app.NewGateway(&fakeTravel{}, &fakeVisa{rec: payload}, nil).VisaRequirements(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})
	for name, empty := range map[string]any{
		"null":         nil,
		"empty object": domain.Record{},
		"empty list":   []any{},
		"empty string": "",
		"false":        false,
	} {
		t.Run("empty/"+name, func(t *testing.T) {
			_, err := app.NewGateway(&fakeTravel{}, &fakeVisa{rec: empty}, nil).VisaRequirements(context.Background(), q)
			require.ErrorIs(t, err, domain.ErrNoResults)
		})
	}
	t.Run("configuration", func(t *testing.T) {
		cfgErr := &domain.Fault{Service: "sherpa", Op: "init", Kind: domain.FaultConfiguration}
		_, err := app.NewGateway(&fakeTravel{}, &fakeVisa{err: cfgErr}, nil).VisaRequirements(context.Background(), q)
		var f *domain.Fault
		require.True(t, errors.As(err, &f))
		assert.Equal(t, domain.FaultConfiguration, f.Kind)
	})
}
