package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-booking/internal/apperrors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Error     string      `json:"error,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(code, message string) APIResponse {
	return APIResponse{
		Status:    StatusError,
		Message:   message,
		Error:     code,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError converts err into the error envelope. Internal details of
// upstream failures never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	message := appErr.Message
	if message == "" {
		message = http.StatusText(appErr.StatusCode())
	}
	WriteJSON(w, appErr.StatusCode(), ErrorResponse(appErr.Code, message))
}
