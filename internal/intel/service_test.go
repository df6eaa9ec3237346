package intel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/common/kv"
)

const geoSuccessBody = `{"status":"success","country":"Russia","countryCode":"RU","city":"Moscow","regionName":"Moscow","lat":55.75,"lon":37.61,"isp":"PinSPb Hosting","org":"PIN-AS"}`

const vtSuccessBody = `{"data":{"attributes":{"reputation":-42,"last_analysis_stats":{"malicious":14,"suspicious":3,"harmless":48,"undetected":25}}}}`

const otxSuccessBody = `{"pulse_info":{"count":2,"pulses":[{"tags":["botnet","ssh"]},{"tags":["botnet","bruteforce"]}]}}`

func newTestService(t *testing.T, geo, vt, otx http.HandlerFunc) (*Service, kv.Store) {
	t.Helper()

	geoSrv := httptest.NewServer(geo)
	vtSrv := httptest.NewServer(vt)
	otxSrv := httptest.NewServer(otx)
	t.Cleanup(geoSrv.Close)
	t.Cleanup(vtSrv.Close)
	t.Cleanup(otxSrv.Close)

	cache := kv.NewMemoryStore()
	svc := NewService(Config{
		VTAPIKey:         "vt-test-key",
		OTXAPIKey:        "otx-test-key",
		HTTPTimeout:      2 * time.Second,
		CacheTTL:         time.Hour,
		DegradedCacheTTL: time.Minute,
		GeoBaseURL:       geoSrv.URL,
		VTBaseURL:        vtSrv.URL,
		OTXBaseURL:       otxSrv.URL,
	}, cache, zap.NewNop())

	return svc, cache
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestValidIPv4(t *testing.T) {
	assert.True(t, ValidIPv4("185.21.34.90"))
	assert.False(t, ValidIPv4("999.1.1.1"))
	assert.False(t, ValidIPv4("2001:db8::1"))
	assert.False(t, ValidIPv4("not-an-ip"))
	assert.False(t, ValidIPv4(""))
}

func TestLookupRejectsInvalidIPBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	counter := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(geoSuccessBody))
	}
	svc, _ := newTestService(t, counter, counter, counter)

	_, err := svc.Lookup(context.Background(), "999.1.1.1")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrValidation))
	assert.Equal(t, int32(0), calls.Load())
}

func TestLookupAllSourcesSucceed(t *testing.T) {
	svc, _ := newTestService(t,
		respond(geoSuccessBody), respond(vtSuccessBody), respond(otxSuccessBody))

	result, err := svc.Lookup(context.Background(), "185.21.34.90")
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Equal(t, "185.21.34.90", result.IP)

	assert.True(t, result.Geo.Available)
	assert.Equal(t, "Russia", result.Geo.Country)
	assert.Equal(t, "Moscow", result.Geo.City)

	assert.True(t, result.Reputation.Available)
	assert.Equal(t, 14, result.Reputation.Malicious)
	assert.Equal(t, -42, result.Reputation.Reputation)

	assert.True(t, result.Pulses.Available)
	assert.Equal(t, 2, result.Pulses.PulseCount)
	// Tags are deduplicated across pulses
	assert.ElementsMatch(t, []string{"botnet", "ssh", "bruteforce"}, result.Pulses.Tags)
}

func TestLookupPulseTagsCapped(t *testing.T) {
	// 12 pulses each carrying a distinct tag; the rollup keeps 10
	pulses := make([]string, 12)
	for i := range pulses {
		pulses[i] = fmt.Sprintf(`{"tags":["tag-%d"]}`, i)
	}
	body := `{"pulse_info":{"count":12,"pulses":[` + strings.Join(pulses, ",") + `]}}`

	svc, _ := newTestService(t, respond(geoSuccessBody), respond(vtSuccessBody), respond(body))

	result, err := svc.Lookup(context.Background(), "185.21.34.90")
	require.NoError(t, err)
	assert.Len(t, result.Pulses.Tags, 10)
}

func TestLookupDegradesPerSource(t *testing.T) {
	failing := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	svc, _ := newTestService(t, respond(geoSuccessBody), failing, respond(otxSuccessBody))

	result, err := svc.Lookup(context.Background(), "185.21.34.90")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.True(t, result.Geo.Available)
	assert.False(t, result.Reputation.Available)
	assert.True(t, result.Pulses.Available)
}

func TestLookupMissingCredentialsDegrade(t *testing.T) {
	geoSrv := httptest.NewServer(respond(geoSuccessBody))
	t.Cleanup(geoSrv.Close)

	svc := NewService(Config{
		GeoBaseURL: geoSrv.URL,
		// No VT/OTX keys configured
	}, kv.NewMemoryStore(), zap.NewNop())

	result, err := svc.Lookup(context.Background(), "102.44.19.80")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.True(t, result.Geo.Available)
	assert.False(t, result.Reputation.Available)
	assert.False(t, result.Pulses.Available)
}

func TestLookupServedFromCache(t *testing.T) {
	var geoCalls atomic.Int32
	countingGeo := func(w http.ResponseWriter, r *http.Request) {
		geoCalls.Add(1)
		w.Write([]byte(geoSuccessBody))
	}
	svc, _ := newTestService(t, countingGeo, respond(vtSuccessBody), respond(otxSuccessBody))
	ctx := context.Background()

	first, err := svc.Lookup(ctx, "185.21.34.90")
	require.NoError(t, err)
	second, err := svc.Lookup(ctx, "185.21.34.90")
	require.NoError(t, err)

	assert.Equal(t, int32(1), geoCalls.Load())
	assert.Equal(t, first.Geo, second.Geo)
}

func TestLookupUpstreamAuthHeaders(t *testing.T) {
	var vtKey, otxKey string
	vt := func(w http.ResponseWriter, r *http.Request) {
		vtKey = r.Header.Get("x-apikey")
		w.Write([]byte(vtSuccessBody))
	}
	otx := func(w http.ResponseWriter, r *http.Request) {
		otxKey = r.Header.Get("X-OTX-API-KEY")
		w.Write([]byte(otxSuccessBody))
	}
	svc, _ := newTestService(t, respond(geoSuccessBody), vt, otx)

	_, err := svc.Lookup(context.Background(), "185.21.34.90")
	require.NoError(t, err)
	assert.Equal(t, "vt-test-key", vtKey)
	assert.Equal(t, "otx-test-key", otxKey)
}

func TestServiceStatus(t *testing.T) {
	svc := NewService(Config{VTAPIKey: "k"}, kv.NewMemoryStore(), zap.NewNop())
	status := svc.Status()

	assert.Equal(t, "live", status.Mode)
	assert.True(t, status.Geo)
	assert.True(t, status.VT)
	assert.False(t, status.OTX)
}

func TestMockGatewayProfiles(t *testing.T) {
	m := NewMockGateway()
	ctx := context.Background()

	result, err := m.Lookup(ctx, "185.21.34.90")
	require.NoError(t, err)
	assert.Equal(t, "Russia", result.Geo.Country)
	assert.Equal(t, 14, result.Reputation.Malicious)
	assert.Contains(t, result.Pulses.Tags, "botnet")
	assert.True(t, result.FromMock)

	generic, err := m.Lookup(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, generic.Geo.Available)
	assert.Equal(t, 0, generic.Reputation.Malicious)
	assert.True(t, generic.FromMock)

	_, err = m.Lookup(ctx, "999.1.1.1")
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrValidation))

	status := m.Status()
	assert.Equal(t, "offline", status.Mode)
	assert.True(t, status.Geo && status.VT && status.OTX)
}
