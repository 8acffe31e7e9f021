// Package sherpa is the visa-rules client.
package sherpa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"travel_gateway/internal/adapters/observability"
	"travel_gateway/internal/domain"
)

const (
	service = "sherpa"
	op      = "requirements"

	// Timeout bounds every visa lookup.
	Timeout = 10 * time.Second
)

type Client struct {
	base string
	key  string
	hc   *http.Client
}

func New(base, key string) (*Client, error) {
	if key == "" {
		return nil, &domain.Fault{
			Service: service, Op: "init", Kind: domain.FaultConfiguration,
			Detail: "SHERPA_API_KEY must be set",
		}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: Timeout},
	}, nil
}

type countryRef struct {
	CountryCode string `json:"countryCode"`
}

type tripRequest struct {
	Trip struct {
		Origin      countryRef `json:"origin"`
		Destination countryRef `json:"destination"`
		Nationality countryRef `json:"nationality"`
	} `json:"trip"`
}

// Requirements asks the provider for the visa decision of one trip.
// Any JSON value is returned as decoded; an empty body is nil, not a fault.
func (c *Client) Requirements(ctx context.Context, q domain.VisaQuery) (any, error) {
	var body tripRequest
	body.Trip.Origin.CountryCode = strings.ToUpper(q.Origin)
	body.Trip.Destination.CountryCode = strings.ToUpper(q.Destination)
	body.Trip.Nationality.CountryCode = strings.ToUpper(q.Nationality)

	b, err := json.Marshal(body)
	if err != nil {
		return nil, c.fail(&domain.Fault{Service: service, Op: op, Kind: domain.FaultUnexpected, Err: err})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v2/trips", bytes.NewReader(b))
	if err != nil {
		return nil, c.fail(&domain.Fault{Service: service, Op: op, Kind: domain.FaultUnexpected, Err: err})
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Info().
		Str("nationality", body.Trip.Nationality.CountryCode).
		Str("origin", body.Trip.Origin.CountryCode).
		Str("destination", body.Trip.Destination.CountryCode).
		Msg("checking visa requirements")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, op, 0, time.Since(start))
		return nil, c.fail(&domain.Fault{Service: service, Op: op, Kind: domain.TransportFaultKind(err), Err: err})
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, c.fail(&domain.Fault{
			Service: service, Op: op, Kind: domain.FaultUpstream, Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(snippet)),
		})
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, c.fail(&domain.Fault{Service: service, Op: op, Kind: domain.FaultUnexpected, Err: err})
	}
	log.Info().Str("shape", fmt.Sprintf("%T", out)).Msg("visa requirements retrieved")
	return out, nil
}

func (c *Client) fail(f *domain.Fault) error {
	switch {
	case f.Kind == domain.FaultTimeout:
		log.Error().Err(f.Err).Msg("sherpa request timed out")
	case f.Status == http.StatusUnauthorized:
		log.Error().Int("status", f.Status).Msg("invalid or expired sherpa api key")
	case f.RateLimited():
		log.Warn().Int("status", f.Status).Msg("sherpa rate limit exceeded")
	case f.Kind == domain.FaultUpstream:
		log.Error().Int("status", f.Status).Str("detail", f.Detail).Msg("sherpa http error")
	case f.Kind == domain.FaultNetwork:
		log.Error().Err(f.Err).Msg("error calling sherpa")
	default:
		log.Error().Err(f).Msg("unexpected error in visa requirements check")
	}
	return f
}

// Unconfigured reports the configuration fault on every call.
type Unconfigured struct{ Err error }

func (u Unconfigured) Requirements(context.Context, domain.VisaQuery) (any, error) {
	return nil, u.Err
}
