package models

import "time"

// AnalyzeResponse wraps a synchronous analysis result
type AnalyzeResponse struct {
	Success        bool          `json:"success"`
	Account        *AccountData  `json:"account,omitempty"`
	Cached         bool          `json:"cached"`
	Attempts       interface{}   `json:"attempts,omitempty"` // providers that failed before the one that answered
	ProcessingTime time.Duration `json:"processing_time"`
	RequestID      string        `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response. Attempts lists the provider
// outcomes when the whole chain failed.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Detail    string      `json:"detail,omitempty"`
	Attempts  interface{} `json:"attempts,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}
