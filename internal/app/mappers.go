package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"travel_gateway/internal/domain"
)

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// floatAt: number at path (json.Number/float64/int/numeric string), nil otherwise.
func floatAt(m map[string]any, path string) *float64 {
	var f float64
	switch v := lookupAny(m, path).(type) {
	case json.Number:
		x, err := v.Float64()
		if err != nil {
			return nil
		}
		f = x
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = x
	default:
		return nil
	}
	return &f
}

// truthy: false for null, false, zero, "" and empty objects/arrays.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case []domain.Record:
		return len(x) > 0
	default:
		return true
	}
}

// geoCodeOf extracts the optional coordinate pair of a location match.
// A missing or falsy geoCode is ErrNoCoordinates; anything else that is not
// an object is ErrInvalidCoordinates.
func geoCodeOf(match domain.Record) (domain.GeoCode, error) {
	v := lookupAny(match, "geoCode")
	if !truthy(v) {
		return domain.GeoCode{}, domain.ErrNoCoordinates
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return domain.GeoCode{}, domain.ErrInvalidCoordinates
	}
	return domain.GeoCode{
		Latitude:  floatAt(obj, "latitude"),
		Longitude: floatAt(obj, "longitude"),
	}, nil
}
