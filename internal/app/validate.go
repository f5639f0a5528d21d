package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"poi_reconciler/internal/domain"
)

const (
	DefaultMinCandidates = 20
	DefaultMaxCandidates = 30
)

// requiredFields is the order in which presence and shape problems are reported.
var requiredFields = []string{"name", "lat", "lon", "tags", "duration_min", "booking_required"}

var invalidMessages = map[string]string{
	"name":             "has invalid name",
	"lat":              "has invalid latitude",
	"lon":              "has invalid longitude",
	"tags":             "has invalid tags (must be list)",
	"duration_min":     "has invalid duration_min",
	"booking_required": "has invalid booking_required (must be boolean)",
}

type Problem string

const (
	ProblemTooFew  Problem = "too_few"
	ProblemTooMany Problem = "too_many"
	ProblemFormat  Problem = "format"
	ProblemMissing Problem = "missing"
	ProblemInvalid Problem = "invalid"
)

// Violation is one broken rule. Index is -1 for set-level problems.
type Violation struct {
	Index   int     `json:"index"`
	Field   string  `json:"field,omitempty"`
	Problem Problem `json:"problem"`
	Message string  `json:"message"`
}

// Verdict is the outcome of validating a candidate set. Reason describes the
// first violation; Violations holds every violation in collect-all mode and
// only the first one otherwise.
type Verdict struct {
	Valid      bool        `json:"valid"`
	Reason     string      `json:"reason,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validator checks a finalized candidate list against cardinality and
// structural rules.
type Validator struct {
	min, max   int
	collectAll bool
	presence   *validator.Validate
	shape      *validator.Validate
}

type ValidatorOption func(*Validator)

// WithBounds overrides the inclusive size interval.
func WithBounds(min, max int) ValidatorOption {
	return func(v *Validator) { v.min, v.max = min, max }
}

// WithCollectAll reports every violation instead of stopping at the first.
func WithCollectAll() ValidatorOption { return func(v *Validator) { v.collectAll = true } }

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		min:      DefaultMinCandidates,
		max:      DefaultMaxCandidates,
		presence: newTagValidator("present"),
		shape:    newTagValidator("validate"),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func newTagValidator(tag string) *validator.Validate {
	v := validator.New()
	v.SetTagName(tag)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks typed candidates. Type rules are carried by the Go types;
// presence and value rules are checked here.
func (v *Validator) Validate(cands []domain.Candidate) Verdict {
	findings := make([]fieldFindings, len(cands))
	for i, c := range cands {
		findings[i] = fieldFindings{
			missing: failedFields(v.presence.Struct(c)),
			invalid: failedFields(v.shape.Struct(c)),
		}
	}
	return v.evaluate(findings)
}

// ValidateJSON checks the raw output of the selection step, which must be a
// JSON array of objects. Wrong JSON types are reported as invalid fields
// rather than decode errors. The decoded candidates are returned alongside
// the verdict.
func (v *Validator) ValidateJSON(data []byte) (Verdict, []domain.Candidate) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return v.verdict([]Violation{{Index: -1, Problem: ProblemFormat, Message: "candidates must be a JSON array: " + err.Error()}}), nil
	}

	cands := make([]domain.Candidate, len(items))
	findings := make([]fieldFindings, len(items))
	for i, raw := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			// treat a non-object as missing every field
			findings[i] = fieldFindings{missing: requiredFields}
			continue
		}
		c, typeErrs := decodeCandidate(obj)
		cands[i] = c
		var missing []string
		for _, f := range requiredFields {
			if _, ok := obj[f]; !ok {
				missing = append(missing, f)
			}
		}
		findings[i] = fieldFindings{
			missing: missing,
			invalid: ordered(append(typeErrs, failedFields(v.shape.Struct(c))...)),
		}
	}
	return v.evaluate(findings), cands
}

type fieldFindings struct{ missing, invalid []string }

func (v *Validator) evaluate(findings []fieldFindings) Verdict {
	var out []Violation
	add := func(vs ...Violation) bool {
		out = append(out, vs...)
		return !v.collectAll && len(out) > 0
	}

	n := len(findings)
	switch {
	case n < v.min:
		if add(Violation{Index: -1, Problem: ProblemTooFew, Message: fmt.Sprintf("too few POI candidates: %d (minimum %d required)", n, v.min)}) {
			return v.verdict(out)
		}
	case n > v.max:
		if add(Violation{Index: -1, Problem: ProblemTooMany, Message: fmt.Sprintf("too many POI candidates: %d (maximum %d allowed)", n, v.max)}) {
			return v.verdict(out)
		}
	}

	for i, f := range findings {
		for _, field := range f.missing {
			if add(Violation{Index: i, Field: field, Problem: ProblemMissing, Message: fmt.Sprintf("POI %d missing required field: %s", i, field)}) {
				return v.verdict(out)
			}
		}
		if len(f.missing) > 0 {
			// shape checks only run on structurally complete candidates
			continue
		}
		for _, field := range f.invalid {
			if add(Violation{Index: i, Field: field, Problem: ProblemInvalid, Message: fmt.Sprintf("POI %d %s", i, invalidMessages[field])}) {
				return v.verdict(out)
			}
		}
	}
	return v.verdict(out)
}

func (v *Validator) verdict(vs []Violation) Verdict {
	if len(vs) == 0 {
		return Verdict{Valid: true}
	}
	return Verdict{Valid: false, Reason: vs[0].Message, Violations: vs}
}

// failedFields lists the json names of fields a validator rejected, in
// requiredFields order.
func failedFields(err error) []string {
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	fields := make([]string, 0, len(ves))
	for _, fe := range ves {
		fields = append(fields, fe.Field())
	}
	return ordered(fields)
}

func ordered(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for _, f := range requiredFields {
		if _, ok := set[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// decodeCandidate converts a JSON object field by field. Required fields with
// the wrong JSON type are returned in typeErrs and left nil; optional fields
// with the wrong type are ignored.
func decodeCandidate(obj map[string]json.RawMessage) (domain.Candidate, []string) {
	var c domain.Candidate
	var typeErrs []string

	if raw, ok := obj["name"]; ok {
		if s, ok := jsonString(raw); ok {
			c.Name = &s
		} else {
			typeErrs = append(typeErrs, "name")
		}
	}
	if raw, ok := obj["lat"]; ok {
		if f, ok := jsonNumber(raw); ok {
			c.Lat = &f
		} else {
			typeErrs = append(typeErrs, "lat")
		}
	}
	if raw, ok := obj["lon"]; ok {
		if f, ok := jsonNumber(raw); ok {
			c.Lon = &f
		} else {
			typeErrs = append(typeErrs, "lon")
		}
	}
	if raw, ok := obj["tags"]; ok {
		var tags []string
		if isJSONKind(raw, '[') && json.Unmarshal(raw, &tags) == nil {
			c.Tags = tags
		} else {
			typeErrs = append(typeErrs, "tags")
		}
	}
	if raw, ok := obj["duration_min"]; ok {
		// integers only: 30.0 and 3e1 are rejected
		if n, err := strconv.Atoi(string(bytes.TrimSpace(raw))); err == nil {
			c.DurationMin = &n
		} else {
			typeErrs = append(typeErrs, "duration_min")
		}
	}
	if raw, ok := obj["booking_required"]; ok {
		switch string(bytes.TrimSpace(raw)) {
		case "true", "false":
			b := string(bytes.TrimSpace(raw)) == "true"
			c.BookingRequired = &b
		default:
			typeErrs = append(typeErrs, "booking_required")
		}
	}

	c.BookingURL = optString(obj["booking_url"])
	c.Notes = optString(obj["notes"])
	c.OpenHours = optString(obj["open_hours"])
	return c, typeErrs
}

func jsonString(raw json.RawMessage) (string, bool) {
	if !isJSONKind(raw, '"') {
		return "", false
	}
	var s string
	return s, json.Unmarshal(raw, &s) == nil
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || !(t[0] == '-' || (t[0] >= '0' && t[0] <= '9')) {
		return 0, false
	}
	var f float64
	return f, json.Unmarshal(t, &f) == nil
}

func optString(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	if s, ok := jsonString(raw); ok {
		return &s
	}
	return nil
}

func isJSONKind(raw json.RawMessage, first byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == first
}
