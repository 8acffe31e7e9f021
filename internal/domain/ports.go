package domain

import (
	"context"
	"time"
)

type TravelClient interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]Record, error)
	NearestAirports(ctx context.Context, at Coordinates) ([]Record, error)
	SearchHotels(ctx context.Context, cityCode string) ([]Record, error)
	SearchActivities(ctx context.Context, at Coordinates) ([]Record, error)
	SearchLocation(ctx context.Context, keyword string) ([]Record, error)
	SearchCars(ctx context.Context, cityCode string) ([]Record, error)
}

// VisaClient returns the provider's decoded JSON body as-is: usually an
// object, but any JSON value is relayed.
type VisaClient interface {
	Requirements(ctx context.Context, q VisaQuery) (any, error)
}

// TokenStore keeps provider access tokens between requests.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type FaultEvent struct {
	Service string
	Op      string
	Kind    FaultKind
	Status  int
	Detail  string
}

// FaultLog persists classified upstream faults for later inspection.
type FaultLog interface {
	RecordFault(ctx context.Context, ev FaultEvent) error
}
