package awair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepar/airquality/airquality"
)

func newTestExtractor(baseURL string) *Extractor {
	return &Extractor{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		RateLimitDelay: 0,
		Client:         &http.Client{Timeout: time.Second},
	}
}

func TestFetchLatest_MapsKnownSensorCodes(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, `{"timestamp":"2024-01-01T00:00:00Z","sensors":[{"comp":"co2","value":450}],"score":80}`)
	}))
	defer server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	assert.Equal(t, "/omni/dev-1/air-data/latest", gotPath)
	assert.Equal(t, "test-key", gotKey)

	assert.Equal(t, "Awair", rec[airquality.ColSource])
	assert.Equal(t, "dev-1", rec[airquality.ColDeviceID])
	assert.Equal(t, "2024-01-01T00:00:00Z", rec[airquality.ColTimestamp])
	assert.Equal(t, json.Number("450"), rec["CO2_ppm"])
	assert.Equal(t, json.Number("80"), rec["Awair_Score"])
	assert.Nil(t, rec[airquality.ColError])
}

func TestFetchLatest_FullSensorSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"timestamp":"2024-01-01T00:00:00Z","sensors":[
			{"comp":"temp","value":21.5},
			{"comp":"humid","value":40.2},
			{"comp":"voc","value":120},
			{"comp":"pm25","value":7},
			{"comp":"pm10","value":9}
		]}`)
	}))
	defer server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	require.False(t, rec.Failed())
	assert.Equal(t, json.Number("21.5"), rec["Temperature_°C"])
	assert.Equal(t, json.Number("40.2"), rec["Humidity_%"])
	assert.Equal(t, json.Number("120"), rec["VOC_ppb"])
	assert.Equal(t, json.Number("7"), rec["PM2.5_µg/m³"])
	assert.Equal(t, json.Number("9"), rec["PM10_µg/m³"])
	// no score in the response means no score column
	_, hasScore := rec["Awair_Score"]
	assert.False(t, hasScore)
}

func TestFetchLatest_UnknownCodeFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"sensors":[{"comp":"xyz","value":3},{"value":1}]}`)
	}))
	defer server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	require.False(t, rec.Failed())
	assert.Equal(t, json.Number("3"), rec["xyz_value"])
	// entry without a comp code lands under the generic name
	assert.Equal(t, json.Number("1"), rec["unknown_value"])
	assert.Nil(t, rec[airquality.ColTimestamp])
}

func TestFetchLatest_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	assert.Equal(t, "HTTP Error: 500 - Internal Server Error", rec[airquality.ColError])
	// error rows carry no sensor columns
	assert.Len(t, rec, len(airquality.PriorityColumns))
}

func TestFetchLatest_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	require.True(t, rec.Failed())
	assert.True(t, strings.HasPrefix(rec[airquality.ColError].(string), "Request Error: "))
}

func TestFetchLatest_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"timestamp":`)
	}))
	defer server.Close()

	rec := newTestExtractor(server.URL).FetchLatest(context.Background(), "dev-1")

	require.True(t, rec.Failed())
	assert.True(t, strings.HasPrefix(rec[airquality.ColError].(string), "Parsing Error: "))
}

func TestFetchAll_OrderAndFailureIsolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/dev-2/") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"timestamp":"2024-01-01T00:00:00Z","sensors":[{"comp":"co2","value":450}]}`)
	}))
	defer server.Close()

	records := newTestExtractor(server.URL).FetchAll(context.Background(), []string{"dev-1", "dev-2", "dev-3"})

	require.Len(t, records, 3)
	assert.Equal(t, "dev-1", records[0][airquality.ColDeviceID])
	assert.Equal(t, "dev-2", records[1][airquality.ColDeviceID])
	assert.Equal(t, "dev-3", records[2][airquality.ColDeviceID])

	assert.False(t, records[0].Failed())
	assert.True(t, records[1].Failed())
	assert.False(t, records[2].Failed())
	assert.Len(t, records[1], len(airquality.PriorityColumns))
	assert.Equal(t, json.Number("450"), records[2]["CO2_ppm"])
}

func TestFetchAll_PacesBetweenRequests(t *testing.T) {
	var calls []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls = append(calls, time.Now())
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	ex := newTestExtractor(server.URL)
	ex.RateLimitDelay = 50 * time.Millisecond

	ex.FetchAll(context.Background(), []string{"dev-1", "dev-2"})

	require.Len(t, calls, 2)
	assert.True(t, calls[1].Sub(calls[0]) >= 50*time.Millisecond)
}
