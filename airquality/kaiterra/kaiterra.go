package kaiterra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airquality/airquality"
)

const DefaultBaseURL = "https://api.kaiterra.com/v1/lasereggs"

// sensor codes to column base names; unknown codes fall back to the
// upper-cased raw code
var sensorColumns = map[string]string{
	"pm25":  "PM2.5",
	"pm10":  "PM10",
	"tvoc":  "TVOC",
	"temp":  "Temperature",
	"humid": "Humidity",
	"co2":   "CO2",
}

// Extractor reads the latest air data for Kaiterra Sensedge Mini devices
// via the Public API. Kaiterra documents no rate limit, so FetchAll does
// not pace requests the way the Awair extractor has to.
type Extractor struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (e *Extractor) Vendor() string {
	return "Kaiterra"
}

func (e *Extractor) FetchLatest(ctx context.Context, deviceID string) airquality.Record {
	rec := airquality.NewRecord(e.Vendor(), deviceID)

	url := fmt.Sprintf("%s/%s", e.BaseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		rec.SetError(errors.Wrap(err, "Request Error").Error())
		return rec
	}
	req.Header.Set("X-API-Key", e.APIKey)

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

	if ts, ok := dig(body, "info", "aqi", "ts"); ok {
		rec[airquality.ColTimestamp] = ts
	}

	if data, ok := digMap(body, "latest", "data"); ok {
		for code, entry := range data {
			// the API mixes scalar metadata in with sensor entries
			info, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}

			base, ok := sensorColumns[code]
			if !ok {
				base = strings.ToUpper(code)
			}

			column := base
			if units, ok := info["units"].(string); ok && units != "" {
				column = base + "_" + units
			}
			rec[column] = info["value"]
		}
	}

	if aqi, ok := digMap(body, "latest", "aqi"); ok {
		for key, entry := range aqi {
			info, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if value, ok := info["value"]; ok {
				rec["AQI_"+strings.ToUpper(key)] = value
			}
		}
	}

	return rec
}

func (e *Extractor) FetchAll(ctx context.Context, deviceIDs []string) []airquality.Record {
	records := make([]airquality.Record, 0, len(deviceIDs))

	for i, deviceID := range deviceIDs {
		log.Infof("Fetching Kaiterra device %d/%d: %s", i+1, len(deviceIDs), deviceID)
		records = append(records, e.FetchLatest(ctx, deviceID))
	}

	return records
}

// dig walks nested objects key by key; absence or a non-object along the
// way just means the field is missing, never an error.
func dig(m map[string]interface{}, keys ...string) (interface{}, bool) {
	var cur interface{} = m
	for _, key := range keys {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func digMap(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	v, ok := dig(m, keys...)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
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
