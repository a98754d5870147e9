package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Broker    string `json:"broker"`
}

type UploadResponse struct {
	Path string `json:"path"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
