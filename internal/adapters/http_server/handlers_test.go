package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"poi_reconciler/internal/domain"
)

type runsStub map[int64]domain.RunView

func (s runsStub) GetRun(_ context.Context, id int64) (domain.RunView, error) {
	rv, ok := s[id]
	if !ok {
		return domain.RunView{}, domain.ErrNotFound
	}
	return rv, nil
}

func newTestServer(h *Handlers) *httptest.Server {
	s := New()
	s.MountHandlers(h)
	return httptest.NewServer(s.Mux())
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&Handlers{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestReadyz(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	ts := newTestServer(&Handlers{Checks: map[string]Pinger{"mysql": ok, "redis": ok}})
	defer ts.Close()
	res, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	ts2 := newTestServer(&Handlers{Checks: map[string]Pinger{"mysql": ok, "redis": down}})
	defer ts2.Close()
	res, err = http.Get(ts2.URL + "/readyz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "ok", body["mysql"])
	require.Equal(t, "connection refused", body["redis"])
}

func TestGetRun(t *testing.T) {
	ts := newTestServer(&Handlers{Runs: runsStub{
		7: {ID: 7, City: "Lisbon", Accepted: 21, Counts: map[domain.SourceTag]int{domain.SourceAPI: 30}},
	}})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/runs/7")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)

	var rv domain.RunView
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rv))
	require.Equal(t, "Lisbon", rv.City)
	require.Equal(t, 30, rv.Counts[domain.SourceAPI])

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/runs/7", nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res2.Body.Close()
	require.Equal(t, http.StatusNotModified, res2.StatusCode)
}

func TestGetRun_Problems(t *testing.T) {
	ts := newTestServer(&Handlers{Runs: runsStub{}})
	defer ts.Close()

	for path, want := range map[string]int{
		"/v1/runs/abc": http.StatusBadRequest,
		"/v1/runs/0":   http.StatusBadRequest,
		"/v1/runs/99":  http.StatusNotFound,
	} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, want, res.StatusCode, path)
		require.Equal(t, "application/problem+json", res.Header.Get("Content-Type"), path)
		res.Body.Close()
	}
}
