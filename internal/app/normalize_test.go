package app_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"poi_reconciler/internal/app"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The Metropolitan Museum of Art", "metropolitan of art"},
		{"  The Drawing Center ", "drawing"},
		{"Rockefeller Centre", "rockefeller"},
		{"Empire State Building", "empire state"},
		{"Central Park", "central"},
		{"Brooklyn Museum", "brooklyn"},
		{"MoMA", "moma"},
		{"", ""},
		// substring removal, not word-aware
		{"Hyde Parkway", "hydeway"},
		{"Bathe Spa", "baspa"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, app.NormalizeName(c.in), "input %q", c.in)
	}
}

func TestNormalizeName_EqualIdentity(t *testing.T) {
	require.Equal(t, app.NormalizeName("The Drawing Center"), app.NormalizeName("drawing center"))
	require.Equal(t, app.NormalizeName("Guggenheim Museum"), app.NormalizeName("THE GUGGENHEIM"))
	require.NotEqual(t, app.NormalizeName("High Line"), app.NormalizeName("Highline"))
}
