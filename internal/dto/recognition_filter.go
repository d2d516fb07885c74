// RecognitionFilters describe user-provided filters to narrow the history list.
package dto

import "time"

type RecognitionFilters struct {
	Plate      string
	OCRMode    string
	HasPlate   *bool
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}
