package airquality

import "context"

type Extractor interface {
	Vendor() string

	// FetchLatest never fails outright: transport, HTTP status and parsing
	// problems are all captured in the record's Error column.
	FetchLatest(ctx context.Context, deviceID string) Record

	// returns one record per device id, in input order
	FetchAll(ctx context.Context, deviceIDs []string) []Record
}
