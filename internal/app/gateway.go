package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"travel_gateway/internal/adapters/observability"
	"travel_gateway/internal/domain"
)

// Gateway orchestrates upstream calls for the HTTP layer. It performs at most
// two sequential upstream calls per request and keeps no state between them.
type Gateway struct {
	travel domain.TravelClient
	visa   domain.VisaClient
	faults domain.FaultLog
}

// NewGateway wires the upstream clients; faults may be nil.
func NewGateway(t domain.TravelClient, v domain.VisaClient, faults domain.FaultLog) *Gateway {
	return &Gateway{travel: t, visa: v, faults: faults}
}

func (g *Gateway) SearchFlights(ctx context.Context, q domain.FlightQuery) ([]domain.Record, error) {
	recs, err := g.travel.SearchFlights(ctx, q)
	return g.records(ctx, recs, err)
}

func (g *Gateway) SearchHotels(ctx context.Context, cityCode string) ([]domain.Record, error) {
	recs, err := g.travel.SearchHotels(ctx, cityCode)
	return g.records(ctx, recs, err)
}

func (g *Gateway) SearchCars(ctx context.Context, cityCode string) ([]domain.Record, error) {
	recs, err := g.travel.SearchCars(ctx, cityCode)
	return g.records(ctx, recs, err)
}

// NearestAirports resolves keyword to coordinates, then lists airports around them.
func (g *Gateway) NearestAirports(ctx context.Context, keyword string) ([]domain.Record, error) {
	at, err := g.ResolveCoordinates(ctx, keyword)
	if err != nil {
		return nil, err
	}
	log.Info().Float64("lat", at.Latitude).Float64("lon", at.Longitude).Msg("finding airports near location")
	recs, err := g.travel.NearestAirports(ctx, at)
	return g.records(ctx, recs, err)
}

// SearchActivities resolves keyword to coordinates, then lists activities around them.
func (g *Gateway) SearchActivities(ctx context.Context, keyword string) ([]domain.Record, error) {
	at, err := g.ResolveCoordinates(ctx, keyword)
	if err != nil {
		return nil, err
	}
	log.Info().Float64("lat", at.Latitude).Float64("lon", at.Longitude).Msg("searching activities near location")
	recs, err := g.travel.SearchActivities(ctx, at)
	return g.records(ctx, recs, err)
}

// ResolveCoordinates uses the first location match only. A failed location
// search counts as "not found".
func (g *Gateway) ResolveCoordinates(ctx context.Context, keyword string) (domain.Coordinates, error) {
	matches, err := g.travel.SearchLocation(ctx, keyword)
	if err != nil {
		g.note(ctx, err)
		return domain.Coordinates{}, fmt.Errorf("%w: %w", domain.ErrLocationNotFound, err)
	}
	if len(matches) == 0 {
		return domain.Coordinates{}, domain.ErrLocationNotFound
	}
	geo, err := geoCodeOf(matches[0])
	if err != nil {
		return domain.Coordinates{}, err
	}
	at, ok := geo.Coordinates()
	if !ok {
		return domain.Coordinates{}, domain.ErrInvalidCoordinates
	}
	return at, nil
}

// VisaRequirements relays the provider payload; a falsy one (null, {}, [], "",
// 0, false) counts as no result.
func (g *Gateway) VisaRequirements(ctx context.Context, q domain.VisaQuery) (any, error) {
	payload, err := g.visa.Requirements(ctx, q)
	if err != nil {
		g.note(ctx, err)
		return nil, err
	}
	if !truthy(payload) {
		return nil, domain.ErrNoResults
	}
	return payload, nil
}

func (g *Gateway) records(ctx context.Context, recs []domain.Record, err error) ([]domain.Record, error) {
	if err != nil {
		g.note(ctx, err)
		return nil, err
	}
	if len(recs) == 0 {
		return nil, domain.ErrNoResults
	}
	return recs, nil
}

// note counts a classified fault and appends it to the audit log, if any.
// The client has already logged the details.
func (g *Gateway) note(ctx context.Context, err error) {
	var f *domain.Fault
	if !errors.As(err, &f) || f.Kind == domain.FaultNotImplemented {
		return
	}
	observability.ObserveFault(f.Service, f.Op, string(f.Kind))
	if g.faults == nil {
		return
	}

	// the audit write must outlive a request that is being torn down
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	ev := domain.FaultEvent{Service: f.Service, Op: f.Op, Kind: f.Kind, Status: f.Status, Detail: f.Detail}
	if rerr := g.faults.RecordFault(wctx, ev); rerr != nil {
		log.Warn().Err(rerr).Str("op", f.Op).Msg("recording upstream fault failed")
	}
}
