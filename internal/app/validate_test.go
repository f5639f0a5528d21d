package app_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"poi_reconciler/internal/app"
	"poi_reconciler/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func candidate(i int) domain.Candidate {
	return domain.Candidate{
		Name:            ptr(fmt.Sprintf("Place %d", i)),
		Lat:             ptr(40.7 + float64(i)*0.01),
		Lon:             ptr(-74.0),
		Tags:            []string{"art"},
		DurationMin:     ptr(90),
		BookingRequired: ptr(false),
	}
}

func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = candidate(i)
	}
	return out
}

func candidateJSON(t *testing.T, cs []domain.Candidate) []byte {
	t.Helper()
	b, err := json.Marshal(cs)
	require.NoError(t, err)
	return b
}

func TestValidate_CountBoundaries(t *testing.T) {
	v := app.NewValidator()
	cases := []struct {
		n      int
		valid  bool
		reason string
	}{
		{19, false, "too few POI candidates: 19 (minimum 20 required)"},
		{20, true, ""},
		{25, true, ""},
		{30, true, ""},
		{31, false, "too many POI candidates: 31 (maximum 30 allowed)"},
		{0, false, "too few POI candidates: 0 (minimum 20 required)"},
	}
	for _, c := range cases {
		got := v.Validate(candidates(c.n))
		require.Equal(t, c.valid, got.Valid, "n=%d", c.n)
		require.Equal(t, c.reason, got.Reason, "n=%d", c.n)
	}
}

func TestValidate_MissingField(t *testing.T) {
	cs := candidates(20)
	cs[3].DurationMin = nil
	got := app.NewValidator().Validate(cs)
	require.False(t, got.Valid)
	require.Equal(t, "POI 3 missing required field: duration_min", got.Reason)
	require.Equal(t, []app.Violation{{Index: 3, Field: "duration_min", Problem: app.ProblemMissing, Message: got.Reason}}, got.Violations)
}

func TestValidate_MissingBeforeInvalid(t *testing.T) {
	cs := candidates(20)
	cs[1].Name = ptr("")
	cs[5].Tags = nil
	got := app.NewValidator().Validate(cs)
	// index order wins over problem kind
	require.Equal(t, "POI 1 has invalid name", got.Reason)

	cs[1].Name = ptr("ok")
	cs[1].DurationMin = ptr(0)
	cs[1].Lat = nil
	require.Equal(t, "POI 1 missing required field: lat", app.NewValidator().Validate(cs).Reason)
}

func TestValidate_ShapeRules(t *testing.T) {
	cases := []struct {
		mutate func(*domain.Candidate)
		reason string
	}{
		{func(c *domain.Candidate) { c.Name = ptr("") }, "POI 0 has invalid name"},
		{func(c *domain.Candidate) { c.DurationMin = ptr(0) }, "POI 0 has invalid duration_min"},
		{func(c *domain.Candidate) { c.DurationMin = ptr(-15) }, "POI 0 has invalid duration_min"},
		{func(c *domain.Candidate) { c.Tags = []string{} }, ""},
		{func(c *domain.Candidate) { c.BookingRequired = ptr(true) }, ""},
	}
	for _, c := range cases {
		cs := candidates(20)
		c.mutate(&cs[0])
		require.Equal(t, c.reason, app.NewValidator().Validate(cs).Reason)
	}
}

func TestValidate_CollectAll(t *testing.T) {
	cs := candidates(19)
	cs[2].Name = ptr("")
	cs[4].BookingRequired = nil
	cs[4].Tags = nil
	cs[7].DurationMin = ptr(0)

	got := app.NewValidator(app.WithCollectAll()).Validate(cs)
	require.False(t, got.Valid)
	require.Equal(t, "too few POI candidates: 19 (minimum 20 required)", got.Reason)

	msgs := make([]string, len(got.Violations))
	for i, v := range got.Violations {
		msgs[i] = v.Message
	}
	require.Equal(t, []string{
		"too few POI candidates: 19 (minimum 20 required)",
		"POI 2 has invalid name",
		"POI 4 missing required field: tags",
		"POI 4 missing required field: booking_required",
		"POI 7 has invalid duration_min",
	}, msgs)
}

func TestValidate_CustomBounds(t *testing.T) {
	v := app.NewValidator(app.WithBounds(2, 3))
	require.True(t, v.Validate(candidates(2)).Valid)
	require.Equal(t, "too many POI candidates: 4 (maximum 3 allowed)", v.Validate(candidates(4)).Reason)
}

func TestValidateJSON_RoundTrip(t *testing.T) {
	in := candidates(20)
	in[0].BookingURL = ptr("https://example.com/tickets")
	got, decoded := app.NewValidator().ValidateJSON(candidateJSON(t, in))
	require.True(t, got.Valid, got.Reason)
	require.Equal(t, in, decoded)
}

func TestValidateJSON_TypeRules(t *testing.T) {
	cases := []struct {
		field, value, reason string
	}{
		{"name", `42`, "POI 0 has invalid name"},
		{"name", `""`, "POI 0 has invalid name"},
		{"lat", `"40.7"`, "POI 0 has invalid latitude"},
		{"lat", `true`, "POI 0 has invalid latitude"},
		{"lon", `null`, "POI 0 has invalid longitude"},
		{"tags", `"art"`, "POI 0 has invalid tags (must be list)"},
		{"duration_min", `30.0`, "POI 0 has invalid duration_min"},
		{"duration_min", `"30"`, "POI 0 has invalid duration_min"},
		{"duration_min", `0`, "POI 0 has invalid duration_min"},
		{"booking_required", `1`, "POI 0 has invalid booking_required (must be boolean)"},
		{"booking_required", `"false"`, "POI 0 has invalid booking_required (must be boolean)"},
		{"tags", `[]`, ""},
		{"lat", `-33`, ""},
	}
	for _, c := range cases {
		var objs []map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(candidateJSON(t, candidates(20)), &objs))
		objs[0][c.field] = json.RawMessage(c.value)
		raw, err := json.Marshal(objs)
		require.NoError(t, err)

		got, _ := app.NewValidator().ValidateJSON(raw)
		require.Equal(t, c.reason, got.Reason, "%s=%s", c.field, c.value)
		require.Equal(t, c.reason == "", got.Valid)
	}
}

func TestValidateJSON_MissingKey(t *testing.T) {
	var objs []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(candidateJSON(t, candidates(20)), &objs))
	delete(objs[12], "duration_min")
	// a wrong-typed earlier field on the same record is still reported after the missing one
	objs[12]["lat"] = json.RawMessage(`"north"`)
	raw, err := json.Marshal(objs)
	require.NoError(t, err)

	got, _ := app.NewValidator().ValidateJSON(raw)
	require.Equal(t, "POI 12 missing required field: duration_min", got.Reason)
}

func TestValidateJSON_NotAnArray(t *testing.T) {
	got, cands := app.NewValidator().ValidateJSON([]byte(`{"name":"x"}`))
	require.False(t, got.Valid)
	require.Nil(t, cands)
	require.True(t, strings.HasPrefix(got.Reason, "candidates must be a JSON array"))

	got, _ = app.NewValidator(app.WithBounds(1, 2)).ValidateJSON([]byte(`["museum"]`))
	require.Equal(t, "POI 0 missing required field: name", got.Reason)
}
