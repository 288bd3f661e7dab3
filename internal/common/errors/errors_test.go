package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeRegistrationFailed, http.StatusUnprocessableEntity},
		{ErrCodeNotificationSendFailed, http.StatusUnprocessableEntity},
		{ErrCodeTooManyRecipients, http.StatusUnprocessableEntity},
		{ErrCodeHubThrottled, http.StatusBadGateway},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	validation := NewValidationError("token is required")
	wrapped := fmt.Errorf("decode: %w", validation)

	assert.Same(t, validation, Normalize(wrapped))

	plain := Normalize(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, nil, NewTooManyRecipientsError(25, 20))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Error StandardError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeTooManyRecipients, body.Error.Code)
	assert.False(t, body.Error.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "client", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "hub", GetErrorCategory(ErrCodeHubThrottled))
	assert.Equal(t, "delivery", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "internal", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeHubRequestFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidationFailed))
}

func TestConstructorsUseRetryableCodes(t *testing.T) {
	cause := fmt.Errorf("boom")
	for _, err := range []*StandardError{
		NewValidationError("bad"),
		NewHubRequestFailedError("send", cause),
		NewHubThrottledError("send"),
		NewHubUnauthorizedError("bad key"),
		NewRegistrationFailedError("U1_ABCDEFGH"),
		NewNotificationSendFailedError("abandoned"),
		NewTooManyRecipientsError(25, 20),
		NewInternalError(cause),
	} {
		assert.Equal(t, IsRetryableErrorCode(err.Code), err.Retryable, "code %s", err.Code)
	}
}
