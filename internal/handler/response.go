package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"blog-admin/internal/util"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response. code is a stable machine-readable
// string; message is safe to show to the user.
func errorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error:   code,
		Message: message,
	}
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response. cause is logged, never sent.
func respondWithError(w http.ResponseWriter, statusCode int, cause error, code, message string) {
	fields := []zap.Field{
		util.Int("status_code", statusCode),
		util.String("error_code", code),
	}
	if cause != nil {
		fields = append(fields, util.ErrorField(cause))
	}
	util.Warn("HTTP error response", fields...)
	respondWithJSON(w, statusCode, errorResponse(code, message))
}
