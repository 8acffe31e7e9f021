// Package amadeus is the travel content client: flights, airports, hotels,
// activities and location lookups. Every operation performs a single upstream
// call and reports failures as *domain.Fault values; nothing is retried.
package amadeus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"travel_gateway/internal/adapters/observability"
	"travel_gateway/internal/domain"
)

const service = "amadeus"

type Client struct {
	base   string
	hc     *http.Client
	rl     *rate.Limiter
	tokens *tokenSource
}

type Option func(*options)

type options struct {
	store domain.TokenStore
	hc    *http.Client
}

// WithTokenStore shares tokens through store instead of process memory.
func WithTokenStore(store domain.TokenStore) Option {
	return func(o *options) { o.store = store }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.hc = hc }
}

func New(base, clientID, clientSecret string, rps int, timeout time.Duration, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, &domain.Fault{
			Service: service, Op: "init", Kind: domain.FaultConfiguration,
			Detail: "AMADEUS_CLIENT_ID and AMADEUS_CLIENT_SECRET must be set",
		}
	}
	if rps <= 0 {
		rps = 10
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hc == nil {
		o.hc = &http.Client{Timeout: timeout}
	}
	if o.store == nil {
		o.store = NewMemoryTokenStore()
	}
	base = strings.TrimRight(base, "/")
	return &Client{
		base:   base,
		hc:     o.hc,
		rl:     rate.NewLimiter(rate.Limit(rps), rps),
		tokens: newTokenSource(base, clientID, clientSecret, o.hc, o.store),
	}, nil
}

func (c *Client) SearchFlights(ctx context.Context, q domain.FlightQuery) ([]domain.Record, error) {
	adults := q.Adults
	if adults < 1 {
		adults = 1
	}
	v := url.Values{}
	v.Set("originLocationCode", strings.ToUpper(q.Origin))
	v.Set("destinationLocationCode", strings.ToUpper(q.Destination))
	v.Set("departureDate", q.DepartureDate)
	v.Set("adults", strconv.Itoa(adults))

	log.Info().Str("origin", q.Origin).Str("destination", q.Destination).
		Str("date", q.DepartureDate).Int("adults", adults).Msg("searching flight offers")
	return c.list(ctx, "flight-offers", "/v2/shopping/flight-offers", v)
}

func (c *Client) NearestAirports(ctx context.Context, at domain.Coordinates) ([]domain.Record, error) {
	log.Info().Float64("lat", at.Latitude).Float64("lon", at.Longitude).Msg("searching nearest airports")
	return c.list(ctx, "nearest-airports", "/v1/reference-data/locations/airports", coords(at))
}

func (c *Client) SearchHotels(ctx context.Context, cityCode string) ([]domain.Record, error) {
	v := url.Values{}
	v.Set("cityCode", strings.ToUpper(cityCode))

	log.Info().Str("city", cityCode).Msg("searching hotel offers")
	return c.list(ctx, "hotel-offers", "/v2/shopping/hotel-offers", v)
}

func (c *Client) SearchActivities(ctx context.Context, at domain.Coordinates) ([]domain.Record, error) {
	log.Info().Float64("lat", at.Latitude).Float64("lon", at.Longitude).Msg("searching activities")
	return c.list(ctx, "activities", "/v1/shopping/activities", coords(at))
}

func (c *Client) SearchLocation(ctx context.Context, keyword string) ([]domain.Record, error) {
	v := url.Values{}
	v.Set("keyword", keyword)
	v.Set("subType", "CITY,AIRPORT")

	log.Info().Str("keyword", keyword).Msg("searching locations")
	return c.list(ctx, "locations", "/v1/reference-data/locations", v)
}

// SearchCars is not offered by the provider's self-service catalogue.
func (c *Client) SearchCars(ctx context.Context, cityCode string) ([]domain.Record, error) {
	return searchCars(cityCode)
}

func searchCars(cityCode string) ([]domain.Record, error) {
	log.Warn().Str("city", cityCode).Msg("car search requested but not available from the provider")
	return nil, &domain.Fault{Service: service, Op: "cars", Kind: domain.FaultNotImplemented, Detail: "car search not available"}
}

// ---- Internals ----

func coords(at domain.Coordinates) url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	return v
}

type envelope struct {
	Data []domain.Record `json:"data"`
}

type providerErrors struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// list performs one authenticated GET and returns the envelope's data array.
// An empty array is not a fault; callers decide what "nothing found" means.
func (c *Client) list(ctx context.Context, op, path string, q url.Values) ([]domain.Record, error) {
	out, err := c.get(ctx, op, path, q)
	if err != nil {
		logFault(err)
		return nil, err
	}
	if len(out) == 0 {
		log.Warn().Str("op", op).Msg("provider returned no data")
	} else {
		log.Info().Str("op", op).Int("count", len(out)).Msg("provider returned data")
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) ([]domain.Record, error) {
	// client-side rate limiting; the wait is bounded by the request context
	if err := c.rl.Wait(ctx); err != nil {
		return nil, &domain.Fault{Service: service, Op: op, Kind: domain.TransportFaultKind(err), Err: err}
	}

	token, err := c.tokens.token(ctx)
	if err != nil {
		return nil, err
	}

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.Fault{Service: service, Op: op, Kind: domain.FaultUnexpected, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "travel-gateway/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, op, 0, time.Since(start))
		return nil, &domain.Fault{Service: service, Op: op, Kind: domain.TransportFaultKind(err), Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, op, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		var env envelope
		if err := dec.Decode(&env); err != nil {
			return nil, &domain.Fault{Service: service, Op: op, Kind: domain.FaultUnexpected, Err: err}
		}
		return env.Data, nil

	case http.StatusUnauthorized:
		// the token was revoked or expired early; next request re-authenticates
		c.tokens.invalidate(ctx)
		return nil, faultFromResponse(op, resp)

	default:
		return nil, faultFromResponse(op, resp)
	}
}

// faultFromResponse turns a non-2xx response into an upstream fault, keeping
// the provider's first error entry for diagnostics.
func faultFromResponse(op string, resp *http.Response) *domain.Fault {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	f := &domain.Fault{Service: service, Op: op, Kind: domain.FaultUpstream, Status: resp.StatusCode}

	var pe providerErrors
	if err := json.Unmarshal(b, &pe); err == nil && len(pe.Errors) > 0 {
		e := pe.Errors[0]
		if e.Code != 0 {
			f.Code = strconv.Itoa(e.Code)
		}
		f.Detail = strings.TrimSpace(e.Title + " " + e.Detail)
		return f
	}
	f.Detail = strings.TrimSpace(string(b))
	return f
}

func logFault(err error) {
	f, ok := err.(*domain.Fault)
	if !ok {
		log.Error().Err(err).Msg("amadeus call failed")
		return
	}
	ev := log.Error()
	if f.RateLimited() {
		ev = log.Warn()
	}
	ev = ev.Str("op", f.Op).Str("kind", string(f.Kind)).Int("status", f.Status)
	if f.Code != "" {
		ev = ev.Str("code", f.Code)
	}
	switch {
	case f.RateLimited():
		ev.Str("detail", f.Detail).Msg("amadeus rate limit exceeded")
	case f.Kind == domain.FaultConfiguration:
		ev.Str("detail", f.Detail).Msg("amadeus configuration error")
	default:
		ev.Err(f).Msg("amadeus api error")
	}
}

// Unconfigured stands in for the client when credentials are missing: every
// call reports the configuration fault that prevented construction.
type Unconfigured struct{ Err error }

func (u Unconfigured) SearchFlights(context.Context, domain.FlightQuery) ([]domain.Record, error) {
	return nil, u.Err
}

func (u Unconfigured) NearestAirports(context.Context, domain.Coordinates) ([]domain.Record, error) {
	return nil, u.Err
}

func (u Unconfigured) SearchHotels(context.Context, string) ([]domain.Record, error) {
	return nil, u.Err
}

func (u Unconfigured) SearchActivities(context.Context, domain.Coordinates) ([]domain.Record, error) {
	return nil, u.Err
}

func (u Unconfigured) SearchLocation(context.Context, string) ([]domain.Record, error) {
	return nil, u.Err
}

// SearchCars answers "not implemented" whether or not credentials exist.
func (u Unconfigured) SearchCars(_ context.Context, cityCode string) ([]domain.Record, error) {
	return searchCars(cityCode)
}
