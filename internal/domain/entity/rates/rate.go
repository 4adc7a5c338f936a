package rates

import "time"

// Point is a single observation of a macro rate series (CER, TAMAR).
type Point struct {
	Series string
	Date   time.Time
	Value  float64
}
