// RecognitionsData is a paginated response payload for the recognition history.
package dto

type RecognitionsData struct {
	Recognitions []RecognitionInfo `json:"recognitions"`
	Length       int               `json:"length"`
	TotalPages   int               `json:"totalPages"`
	CurrentPage  int               `json:"currentPage"`
	Limit        int               `json:"pageSize"`
}
