package model

const (
	DetectionKindPlate     = "plate"
	DetectionKindCharacter = "character"
)

// Detection is a box recorded for a recognition: the chosen plate or one of
// its characters.
type Detection struct {
	ID            int64   `json:"id"`
	RecognitionID int64   `json:"recognition_id"`
	Kind          string  `json:"kind"`
	Label         string  `json:"label"`
	X             int     `json:"x"`
	Y             int     `json:"y"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Confidence    float64 `json:"confidence"`
}
