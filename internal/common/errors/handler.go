// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Logger is the subset of logger.Logger the error writer needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type errorResponse struct {
	Error *StandardError `json:"error"`
}

// WriteError normalizes err, logs it and writes it as a JSON error body.
func WriteError(w http.ResponseWriter, log Logger, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	}
	if log != nil {
		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields)
		} else {
			log.Warn("request rejected", fields)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: stdErr})
}
