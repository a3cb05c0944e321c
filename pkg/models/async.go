package models

import "time"

// AsyncStatus represents the status of an async operation
type AsyncStatus string

const (
	AsyncStatusAccepted   AsyncStatus = "ACCEPTED"
	AsyncStatusProcessing AsyncStatus = "PROCESSING"
	AsyncStatusSuccess    AsyncStatus = "SUCCESS"
	AsyncStatusFailure    AsyncStatus = "FAILURE"
)

// AsyncAnalyzeResponse is returned immediately by the async analysis endpoint
type AsyncAnalyzeResponse struct {
	ProcessID string      `json:"processId"`
	Status    AsyncStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// CreateAsyncAnalyzeResponse creates an accepted response for processID
func CreateAsyncAnalyzeResponse(processID string) *AsyncAnalyzeResponse {
	return &AsyncAnalyzeResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Profile analysis accepted for background processing",
		Timestamp: time.Now(),
	}
}
