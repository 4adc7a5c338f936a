package tablestore

import (
	"time"

	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

// normalizeRow prepares a row for transmission: temporal values become
// UTC ISO-8601 strings (JSON has no temporal type) and updated_at is
// stamped with the current UTC time on every row.
func normalizeRow(row interfaces.Row, stamp time.Time) interfaces.Row {
	out := make(interfaces.Row, len(row)+1)
	for k, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.UTC().Format(time.RFC3339)
		case *time.Time:
			if t == nil {
				out[k] = nil
			} else {
				out[k] = t.UTC().Format(time.RFC3339)
			}
		default:
			out[k] = v
		}
	}
	out["updated_at"] = stamp.UTC().Format(time.RFC3339)
	return out
}
