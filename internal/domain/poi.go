package domain

import "encoding/json"

// SourceTag marks which source produced a record.
type SourceTag string

const (
	SourceAPI    SourceTag = "api"
	SourceVector SourceTag = "vector"
	SourceGraph  SourceTag = "graph"
)

// SourcePriority is the fixed concatenation order used by reconciliation.
var SourcePriority = []SourceTag{SourceAPI, SourceVector, SourceGraph}

// Rank returns the position of t in SourcePriority, or len(SourcePriority) for unknown tags.
func (t SourceTag) Rank() int {
	for i, s := range SourcePriority {
		if s == t {
			return i
		}
	}
	return len(SourcePriority)
}

func (t SourceTag) Valid() bool { return t.Rank() < len(SourcePriority) }

// RawPOI is a record as produced by any source. Pointer fields are nil when
// the source did not provide them.
type RawPOI struct {
	Name            string          `json:"name"`
	Lat             *float64        `json:"lat,omitempty"`
	Lon             *float64        `json:"lon,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	DurationMin     *int            `json:"duration_min,omitempty"`
	BookingRequired *bool           `json:"booking_required,omitempty"`
	BookingURL      *string         `json:"booking_url,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	OpenHours       *string         `json:"open_hours,omitempty"`
	Neighborhood    *string         `json:"neighborhood,omitempty"`
	Extras          json.RawMessage `json:"extras,omitempty"` // source-specific keys, passed through
	Source          SourceTag       `json:"source,omitempty"`
}

// Coords returns the record's coordinates and whether both are present.
func (p RawPOI) Coords() (Coords, bool) {
	if p.Lat == nil || p.Lon == nil {
		return Coords{}, false
	}
	return Coords{Lat: *p.Lat, Lon: *p.Lon}, true
}

type Coords struct{ Lat, Lon float64 }

// SourceBatch is one source's contribution to a reconciliation.
type SourceBatch struct {
	Tag     SourceTag
	Records []RawPOI
}

type DropReason string

const (
	DropNoCoordinates     DropReason = "no_coordinates"
	DropNameDuplicate     DropReason = "name_duplicate"
	DropLocationDuplicate DropReason = "location_duplicate"
)

// Drop describes a record that did not survive reconciliation.
type Drop struct {
	Name        string     `json:"name"`
	Source      SourceTag  `json:"source"`
	Reason      DropReason `json:"reason"`
	MatchedName string     `json:"matched_name,omitempty"`
	DistanceM   *float64   `json:"distance_m,omitempty"`
}

type MergeStats struct {
	Input    int                `json:"input"`
	Accepted int                `json:"accepted"`
	BySource map[SourceTag]int  `json:"by_source"`
	Dropped  map[DropReason]int `json:"dropped"`
}

// ReconciledSet is the duplicate-free result of one reconciliation, in first-seen order.
type ReconciledSet struct {
	Records []RawPOI   `json:"records"`
	Drops   []Drop     `json:"drops,omitempty"`
	Stats   MergeStats `json:"stats"`
}

// Candidate is the strict shape a finalized selection must have. Required
// fields are pointers (or a nil slice) so that absence is distinguishable
// from a zero value.
type Candidate struct {
	Name            *string  `json:"name" present:"required" validate:"omitnil,min=1"`
	Lat             *float64 `json:"lat" present:"required"`
	Lon             *float64 `json:"lon" present:"required"`
	Tags            []string `json:"tags" present:"required"`
	DurationMin     *int     `json:"duration_min" present:"required" validate:"omitnil,gt=0"`
	BookingRequired *bool    `json:"booking_required" present:"required"`
	BookingURL      *string  `json:"booking_url,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	OpenHours       *string  `json:"open_hours,omitempty"`
}

// TripIntent is the structured request the sources are queried for.
type TripIntent struct {
	Ref       string   `json:"ref,omitempty"`
	City      string   `json:"city"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Pace      string   `json:"pace,omitempty"` // relaxed|moderate|fast
	Party     Party    `json:"party,omitempty"`
}

type Party struct {
	Adults   int `json:"adults,omitempty"`
	Children int `json:"children,omitempty"`
}
