package handler

import "time"

const (
	errorType   = "ERROR"
	showAsSnack = "SNACKBAR"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	ErrorMessage     string    `json:"error_message"`
	DeveloperMessage string    `json:"developer_message,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Type             string    `json:"type"`
	ShowAs           string    `json:"show_as"`
}

func NewErrorResponse(message, developer string) ErrorResponse {
	return ErrorResponse{
		ErrorMessage:     message,
		DeveloperMessage: developer,
		Timestamp:        time.Now().UTC(),
		Type:             errorType,
		ShowAs:           showAsSnack,
	}
}
