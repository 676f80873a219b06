package awair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airquality/airquality"
)

const (
	DefaultBaseURL = "https://developer-apis.awair.is/v1/users/self/devices"

	// the enterprise API caps at 10 requests per minute
	DefaultRateLimitDelay = 6 * time.Second
)

// sensor component codes to column names; codes not listed here fall back
// to "{code}_value" so novel sensor types still surface in the output
var sensorColumns = map[string]string{
	"temp":  "Temperature_°C",
	"humid": "Humidity_%",
	"co2":   "CO2_ppm",
	"voc":   "VOC_ppb",
	"pm25":  "PM2.5_µg/m³",
	"pm10":  "PM10_µg/m³",
}

// Extractor reads the latest air data for Awair Omni devices via the
// Enterprise Dashboard API.
type Extractor struct {
	APIKey         string
	BaseURL        string
	RateLimitDelay time.Duration
	Client         *http.Client
}

func (e *Extractor) Vendor() string {
	return "Awair"
}

func (e *Extractor) FetchLatest(ctx context.Context, deviceID string) airquality.Record {
	rec := airquality.NewRecord(e.Vendor(), deviceID)

	url := fmt.Sprintf("%s/omni/%s/air-data/latest", e.BaseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		rec.SetError(errors.Wrap(err, "Request Error").Error())
		return rec
	}
	req.Header.Set("x-api-key", e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		rec.SetError(errors.Wrap(err, "Request Error").Error())
		return rec
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rec.SetError(fmt.Sprintf("HTTP Error: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		return rec
	}

	body, err := decodeBody(resp)
	if err != nil {
		rec.SetError(errors.Wrap(err, "Parsing Error").Error())
		return rec
	}

	if ts, ok := body["timestamp"]; ok {
		rec[airquality.ColTimestamp] = ts
	}

	if sensors, ok := body["sensors"].([]interface{}); ok {
		for _, entry := range sensors {
			sensor, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}

			comp := "unknown"
			if c, ok := sensor["comp"].(string); ok {
				comp = c
			}

			column, ok := sensorColumns[comp]
			if !ok {
				column = comp + "_value"
			}
			rec[column] = sensor["value"]
		}
	}

	if score, ok := body["score"]; ok {
		rec["Awair_Score"] = score
	}

	return rec
}

func (e *Extractor) FetchAll(ctx context.Context, deviceIDs []string) []airquality.Record {
	records := make([]airquality.Record, 0, len(deviceIDs))

	for i, deviceID := range deviceIDs {
		log.Infof("Fetching Awair device %d/%d: %s", i+1, len(deviceIDs), deviceID)
		records = append(records, e.FetchLatest(ctx, deviceID))

		// pace requests to stay under the cap; nothing to wait for after the last one
		if i < len(deviceIDs)-1 {
			time.Sleep(e.RateLimitDelay)
		}
	}

	return records
}

func decodeBody(resp *http.Response) (map[string]interface{}, error) {
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}

	return body, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		log.Errorf("failed to close response body: %s", err)
	}
}
