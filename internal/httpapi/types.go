package httpapi

import "time"

// APIResponse is the envelope of every /api/v1 response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Status describes the launcher for GET /api/v1/status
type Status struct {
	ServerRunning bool       `json:"server_running"`
	PID           int        `json:"pid,omitempty"`
	ServerDir     string     `json:"server_dir,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	Port          int        `json:"port"`
	URL           string     `json:"url"`
	Window        string     `json:"window"`
	SessionID     string     `json:"session_id,omitempty"`
}

// CommandAccepted is returned when a command was queued
type CommandAccepted struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id"`
}

func newSuccessResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func newErrorResponse(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}
