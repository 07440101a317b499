package model

// Subject is a configured question bank.
type Subject struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	// CSAT marks subjects scored and timed with the aptitude scheme.
	CSAT bool `json:"csat"`
}
