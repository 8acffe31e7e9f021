// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"travel_gateway/internal/app"
	"travel_gateway/internal/domain"
)

type Handlers struct{ G *app.Gateway }

type errorBody struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`
}

type status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

var internalError = errorBody{
	Error:   "Internal server error",
	Message: "An unexpected error occurred. Please try again later.",
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/", h.index)
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/flights", h.searchFlights)
		r.Get("/nearest-airports", h.nearestAirports)
		r.Get("/visa-requirements", h.visaRequirements)
		r.Get("/hotels", h.searchHotels)
		r.Get("/cars", h.searchCars)
		r.Get("/activities", h.searchActivities)
	})
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("write JSON error response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 200 with v, or 304 when the client already holds it.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeError(w, http.StatusInternalServerError, internalError)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

// writeLookupFailure answers faults and empty results with the endpoint's
// own message; anything else is an internal error.
func writeLookupFailure(w http.ResponseWriter, err error, body errorBody) {
	var f *domain.Fault
	if errors.Is(err, domain.ErrNoResults) || errors.As(err, &f) {
		writeError(w, http.StatusInternalServerError, body)
		return
	}
	log.Error().Err(err).Msg("unexpected error while handling request")
	writeError(w, http.StatusInternalServerError, internalError)
}

// writeLocationFailure handles the first leg of a chained lookup and reports
// whether it wrote a response.
func writeLocationFailure(w http.ResponseWriter, keyword string, err error, noCoords errorBody) bool {
	switch {
	case errors.Is(err, domain.ErrLocationNotFound):
		log.Warn().Str("keyword", keyword).Msg("no location found")
		writeError(w, http.StatusNotFound, errorBody{
			Error:   "Could not find location",
			Message: fmt.Sprintf("No location found matching %q. Try a different search term.", keyword),
		})
	case errors.Is(err, domain.ErrNoCoordinates):
		log.Warn().Str("keyword", keyword).Msg("location has no coordinates")
		writeError(w, http.StatusNotFound, noCoords)
	case errors.Is(err, domain.ErrInvalidCoordinates):
		log.Error().Str("keyword", keyword).Msg("invalid coordinates for location")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Invalid location coordinates"})
	default:
		return false
	}
	return true
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, status{Status: "active", Message: "Travel Agent Assistant API", Version: "1.0.0"})
}

func (h *Handlers) searchFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, destination, date := q.Get("origin"), q.Get("destination"), q.Get("departure_date")

	if anyEmpty(origin, destination, date) {
		log.Warn().Msg("missing required parameters for flight search")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:    "Missing required parameters",
			Required: []string{"origin", "destination", "departure_date"},
			Optional: []string{"adults"},
		})
		return
	}
	if !validDepartureDate(date) {
		log.Warn().Str("departure_date", date).Msg("invalid date format")
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid date format. Use YYYY-MM-DD format"})
		return
	}
	adults, err := strconv.Atoi(q.Get("adults"))
	if err != nil {
		adults = 1
	}

	log.Info().Str("origin", origin).Str("destination", destination).Str("date", date).Int("adults", adults).Msg("flight search request")
	offers, err := h.G.SearchFlights(r.Context(), domain.FlightQuery{
		Origin: origin, Destination: destination, DepartureDate: date, Adults: adults,
	})
	if err != nil {
		writeLookupFailure(w, err, errorBody{
			Error:   "Could not retrieve flight offers",
			Message: "No flights available for the specified route and date. Try different dates or nearby airports.",
		})
		return
	}
	writeJSON(w, r, offers)
}

func (h *Handlers) nearestAirports(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		log.Warn().Msg("missing keyword parameter")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:   "Missing required parameter: keyword",
			Message: "Please provide a location name (e.g., city or airport name)",
		})
		return
	}

	log.Info().Str("keyword", keyword).Msg("nearest airports request")
	airports, err := h.G.NearestAirports(r.Context(), keyword)
	if err != nil {
		if writeLocationFailure(w, keyword, err, errorBody{
			Error:   "Location found but no coordinates available",
			Message: "The location was found but geographic coordinates are not available.",
		}) {
			return
		}
		writeLookupFailure(w, err, errorBody{
			Error:   "Could not retrieve nearest airports",
			Message: "No airports found near the specified location.",
		})
		return
	}
	writeJSON(w, r, airports)
}

func (h *Handlers) visaRequirements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vq := domain.VisaQuery{Origin: q.Get("origin"), Destination: q.Get("destination"), Nationality: q.Get("nationality")}

	if anyEmpty(vq.Origin, vq.Destination, vq.Nationality) {
		log.Warn().Msg("missing required parameters for visa check")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:    "Missing required parameters",
			Required: []string{"origin", "destination", "nationality"},
			Message:  "All three parameters (origin, destination, nationality) are required. Use ISO country codes (e.g., US, FR, GB).",
		})
		return
	}
	if !validCountryCodes(vq) {
		log.Warn().Str("origin", vq.Origin).Str("destination", vq.Destination).Str("nationality", vq.Nationality).Msg("invalid country code format")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:   "Invalid country code format",
			Message: "Country codes must be 2-letter ISO codes (e.g., US, FR, GB)",
		})
		return
	}

	log.Info().Str("origin", vq.Origin).Str("destination", vq.Destination).Str("nationality", vq.Nationality).Msg("visa requirements request")
	rec, err := h.G.VisaRequirements(r.Context(), vq)
	if err != nil {
		if domain.IsFault(err, domain.FaultConfiguration) {
			log.Error().Err(err).Msg("visa client is not configured")
			writeError(w, http.StatusInternalServerError, errorBody{
				Error:   "Configuration error",
				Message: "Sherpa API key is not configured. Please set SHERPA_API_KEY in your environment variables.",
			})
			return
		}
		writeLookupFailure(w, err, errorBody{
			Error:   "Could not retrieve visa information",
			Message: "Unable to fetch visa requirements. Please check your API key and try again.",
		})
		return
	}
	writeJSON(w, r, rec)
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	cityCode := r.URL.Query().Get("city_code")
	if cityCode == "" {
		log.Warn().Msg("missing city_code parameter")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:   "Missing required parameter: city_code",
			Message: "Please provide an IATA city code (e.g., NYC, PAR, LON)",
		})
		return
	}

	log.Info().Str("city_code", cityCode).Msg("hotel search request")
	offers, err := h.G.SearchHotels(r.Context(), cityCode)
	if err != nil {
		writeLookupFailure(w, err, errorBody{
			Error:   "Could not retrieve hotel offers",
			Message: fmt.Sprintf("No hotels found for city code %q. Try a different city code.", cityCode),
		})
		return
	}
	writeJSON(w, r, offers)
}

func (h *Handlers) searchCars(w http.ResponseWriter, r *http.Request) {
	cityCode := r.URL.Query().Get("city_code")
	if cityCode == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Missing required parameter: city_code"})
		return
	}

	cars, err := h.G.SearchCars(r.Context(), cityCode)
	if err != nil || len(cars) == 0 {
		writeError(w, http.StatusNotImplemented, errorBody{Error: "Car search not yet available"})
		return
	}
	writeJSON(w, r, cars)
}

func (h *Handlers) searchActivities(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		log.Warn().Msg("missing keyword parameter")
		writeError(w, http.StatusBadRequest, errorBody{
			Error:   "Missing required parameter: keyword",
			Message: "Please provide a location name to search for activities",
		})
		return
	}

	log.Info().Str("keyword", keyword).Msg("activity search request")
	activities, err := h.G.SearchActivities(r.Context(), keyword)
	if err != nil {
		if writeLocationFailure(w, keyword, err, errorBody{Error: "Location found but no coordinates available"}) {
			return
		}
		writeLookupFailure(w, err, errorBody{
			Error:   "Could not retrieve activities",
			Message: fmt.Sprintf("No activities found near %q. Try a different location.", keyword),
		})
		return
	}
	writeJSON(w, r, activities)
}
