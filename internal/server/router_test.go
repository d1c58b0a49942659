package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/stationprobe/internal/results"
	"github.com/loykin/stationprobe/internal/station"
	ptls "github.com/loykin/stationprobe/internal/tls"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, base string) (http.Handler, *results.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := results.NewStore([]string{"lab", "office"})
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(results.NewCollector(store)))
	return NewRouter(store, reg, base).Handler(), store
}

func doReq(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStationsSnapshot(t *testing.T) {
	h, store := setupRouter(t, "/api")
	store.Set("lab", station.Result{AssociationSucceeded: true, AssociationTime: 1.5})

	rec := doReq(t, h, "/api/stations")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap results.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Stations, 2)
	assert.Equal(t, "lab", snap.Stations[0].Station)
	assert.True(t, snap.Stations[0].Result.AssociationSucceeded)
	assert.Equal(t, "office", snap.Stations[1].Station)
	assert.False(t, snap.Stations[1].Result.AssociationSucceeded)
}

func TestStationByName(t *testing.T) {
	h, store := setupRouter(t, "api/")
	store.Set("office", station.Result{AssociationSucceeded: true, LeaseSucceeded: true})

	rec := doReq(t, h, "/api/stations/office")
	require.Equal(t, http.StatusOK, rec.Code)
	var st results.StationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "office", st.Station)
	assert.True(t, st.Result.LeaseSucceeded)

	rec = doReq(t, h, "/api/stations/garage")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "garage")
}

func TestHealthz(t *testing.T) {
	h, store := setupRouter(t, "")
	store.SetLastCycle(time.Now().Add(-3 * time.Second))

	rec := doReq(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.InDelta(t, 3, body.SecondsSinceLastCycle, 1)
}

func TestMetricsExposition(t *testing.T) {
	h, store := setupRouter(t, "/api")
	store.Set("lab", station.Result{AssociationSucceeded: true, AssociationTime: 2})

	rec := doReq(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `stationprobe_station_association_succeeded{station="lab"} 1`)
	assert.Contains(t, body, `stationprobe_station_association_time_seconds{station="lab"} 2`)
	assert.Contains(t, body, `stationprobe_station_probe_succeeded{station="office"} 0`)
	assert.Contains(t, body, "stationprobe_seconds_since_last_cycle")
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{"": "", "/": "", "api": "/api", "/api/": "/api", " /v1/x/ ": "/v1/x"}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeBase(in), "input %q", in)
	}
}

func TestServerLifecycle(t *testing.T) {
	h, _ := setupRouter(t, "/api")
	s, err := NewServer("127.0.0.1:0", h, nil, nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	_, err = http.Get("http://" + s.Addr() + "/healthz")
	assert.Error(t, err)
}

func TestServerTLS(t *testing.T) {
	dir := t.TempDir()
	cert, key := filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")
	require.NoError(t, ptls.GenerateSelfSignedCert(ptls.CertConfig{
		CommonName:  "localhost",
		IPAddresses: []string{"127.0.0.1"},
		CertPath:    cert,
		KeyPath:     key,
	}))
	tlsCfg, err := ptls.Setup(ptls.ServerConfig{CertFile: cert, KeyFile: key})
	require.NoError(t, err)

	h, _ := setupRouter(t, "/api")
	s, err := NewServer("127.0.0.1:0", h, tlsCfg, nil)
	require.NoError(t, err)
	defer func() { _ = s.Shutdown(context.Background()) }()

	// #nosec G402 self-signed test certificate
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	resp, err := client.Get("https://" + s.Addr() + "/api/stations")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"lab"`))
}
