package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"poi_reconciler/internal/domain"
)

/********** alias registry (single source of truth) **********/

var poiAliases = map[string][]string{
	"name": {"name", "title", "poi_name", "display_name", "displayName.text"},
	"lat": {
		"lat", "latitude", "location.lat", "location.latitude",
		"geometry.location.lat", "coordinates.lat",
	},
	"lon": {
		"lon", "lng", "longitude", "location.lon", "location.lng", "location.longitude",
		"geometry.location.lng", "coordinates.lon", "coordinates.lng",
	},
	"tags":             {"tags", "categories", "types", "category"},
	"duration_min":     {"duration_min", "duration", "durationMinutes", "typical_duration_min"},
	"booking_required": {"booking_required", "bookingRequired", "reservation_required"},
	"booking_url":      {"booking_url", "bookingUrl", "tickets_url", "ticket_url"},
	"notes":            {"notes", "note", "summary"},
	"open_hours":       {"open_hours", "opening_hours", "hours", "hours_text"},
	"neighborhood":     {"neighborhood", "neighbourhood", "district", "area"},
	"source":           {"source", "_source"},
}

var poiKnown = topLevelKnownFromAliases(poiAliases,
	"name", "lat", "lon", "tags", "duration_min", "booking_required",
	"booking_url", "notes", "open_hours", "neighborhood", "source",
)

/********** tiny helpers **********/

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

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return &s
		}
	}
	return nil
}

// getFloatFlexible: number from several paths (float64/int/string like "40,7").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		if f, ok := floatOf(lookupAny(m, k)); ok {
			return &f
		}
	}
	return nil
}

// floatOf converts a payload value to a finite float. "NaN" and "Inf" strings
// parse but are not coordinates, so they count as absent.
func floatOf(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		n, err := strconv.ParseFloat(s, 64)
		if s == "" || err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// firstIntFlexible: int from several paths (float64/int/string).
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case int64:
			x := int(v)
			return &x
		case json.Number:
			if n, err := v.Int64(); err == nil {
				x := int(n)
				return &x
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstBoolFlexible: bool from several paths (bool or "true"/"false"/"yes"/"no").
func firstBoolFlexible(m map[string]any, paths ...string) *bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			b := v
			return &b
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes":
				b := true
				return &b
			case "false", "no":
				b := false
				return &b
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any or []string with either strings or {name/label}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		var raw []any
		switch v := lookupAny(m, k).(type) {
		case []any:
			raw = v
		case []string:
			for _, s := range v {
				raw = append(raw, s)
			}
		default:
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if n, ok := t["name"].(string); ok && n != "" {
					out = append(out, n)
					continue
				}
				if n, ok := t["label"].(string); ok && n != "" {
					out = append(out, n)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// topLevelKnownFromAliases builds a set of top-level keys to exclude from extras.
func topLevelKnownFromAliases(aliases map[string][]string, keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, 32)
	for _, k := range keys {
		for _, path := range aliases[k] {
			top := path
			if i := strings.IndexByte(top, '.'); i >= 0 {
				top = top[:i]
			}
			set[top] = struct{}{}
		}
	}
	return set
}

/********** poi mapper **********/

// mapPOI converts one loose source payload into a RawPOI. Keys outside the
// alias registry are kept verbatim in Extras.
func mapPOI(p map[string]any) domain.RawPOI {
	rec := domain.RawPOI{
		Lat:             getFloatFlexible(p, poiAliases["lat"]...),
		Lon:             getFloatFlexible(p, poiAliases["lon"]...),
		DurationMin:     firstIntFlexible(p, poiAliases["duration_min"]...),
		BookingRequired: firstBoolFlexible(p, poiAliases["booking_required"]...),
		BookingURL:      firstNonEmptyAlias(p, poiAliases, "booking_url"),
		OpenHours:       firstNonEmptyAlias(p, poiAliases, "open_hours"),
		Neighborhood:    firstNonEmptyAlias(p, poiAliases, "neighborhood"),
	}
	if s := firstNonEmptyAlias(p, poiAliases, "name"); s != nil {
		rec.Name = *s
	}

	// Tags → list, or a single category string.
	if tags := firstSliceStrings(p, poiAliases["tags"]...); len(tags) > 0 {
		rec.Tags = tags
	} else if s := firstNonEmptyAlias(p, poiAliases, "tags"); s != nil {
		rec.Tags = []string{*s}
	}

	// Notes → string, or a list joined into one line.
	if s := firstNonEmptyAlias(p, poiAliases, "notes"); s != nil {
		rec.Notes = s
	} else if parts := firstSliceStrings(p, poiAliases["notes"]...); len(parts) > 0 {
		joined := strings.Join(parts, "; ")
		rec.Notes = &joined
	}

	if s := firstNonEmptyAlias(p, poiAliases, "source"); s != nil && domain.SourceTag(*s).Valid() {
		rec.Source = domain.SourceTag(*s)
	}

	extras := make(map[string]any, 8)
	for k, v := range p {
		if _, ok := poiKnown[k]; ok {
			continue
		}
		extras[k] = v
	}
	if len(extras) > 0 {
		b, err := json.Marshal(extras)
		if err != nil {
			log.Error().Err(err).Str("context", "mapPOI").Str("name", rec.Name).Msg("marshal extras failed")
		} else {
			rec.Extras = b
		}
	}
	return rec
}

func mapPOIs(in []map[string]any) []domain.RawPOI {
	out := make([]domain.RawPOI, 0, len(in))
	for _, p := range in {
		out = append(out, mapPOI(p))
	}
	return out
}
