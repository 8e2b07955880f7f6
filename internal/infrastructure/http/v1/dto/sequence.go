package dto

// SequenceResponse reports the state of one number sequence.
type SequenceResponse struct {
	DocType    string `json:"docType"`
	Year       int    `json:"year"`
	LastSeq    int64  `json:"lastSeq"`
	LastNumber string `json:"lastNumber,omitempty"`
}
