package airquality

import (
	"encoding/json"
	"fmt"
)

// priority columns, present in every record
const (
	ColSource    = "Source"
	ColDeviceID  = "Device_ID"
	ColTimestamp = "Timestamp_UTC"
	ColError     = "Error"
)

// PriorityColumns in fixed export order; all other columns follow sorted.
var PriorityColumns = []string{ColSource, ColDeviceID, ColTimestamp, ColError}

// Record is one flattened row of readings plus metadata for a single polled
// device. Which sensor columns a device reports varies per vendor and per
// device, so this is an open mapping rather than a fixed struct.
type Record map[string]interface{}

func NewRecord(source string, deviceID string) Record {
	return Record{
		ColSource:    source,
		ColDeviceID:  deviceID,
		ColTimestamp: nil,
		ColError:     nil,
	}
}

func (r Record) SetError(msg string) {
	r[ColError] = msg
}

func (r Record) Failed() bool {
	return r[ColError] != nil
}

// FormatCell renders a record value for CSV output. Numbers decoded with
// json.Decoder.UseNumber keep their wire form, so repeated runs over the
// same responses produce byte-identical files.
func FormatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
