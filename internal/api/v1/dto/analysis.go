package dto

// AnalysisRequestDTO is the payload for a new audio analysis request.
type AnalysisRequestDTO struct {
	Filename string `json:"filename" validate:"required"`
	FileSize int64  `json:"file_size" validate:"required,gt=0"`
}

// UsageDTO reports current usage against the quota for client display.
type UsageDTO struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}

// AnalysisResponseDTO is returned for an admitted analysis request.
type AnalysisResponseDTO struct {
	Message     string   `json:"message"`
	UserID      string   `json:"user_id"`
	UploadURL   string   `json:"upload_url"`
	StoragePath string   `json:"storage_path"`
	Usage       UsageDTO `json:"usage"`
}

// AnalysisRejectedDTO is returned when the request is not admitted.
type AnalysisRejectedDTO struct {
	Admitted bool     `json:"admitted"`
	Reason   string   `json:"reason"`
	Usage    UsageDTO `json:"usage"`
}
