// Package api serves the gateway's HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "notification-gateway/internal/common/errors"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/validation"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/models"
	"notification-gateway/internal/push/dispatch"
)

const maxBodyBytes = 1 << 20

// NotificationService is the facade the handlers call.
type NotificationService interface {
	Send(ctx context.Context, req *models.NotificationRequest) (*dispatch.Result, error)
	Register(ctx context.Context, req *models.RegistrationRequest) bool
	Lookup(ctx context.Context, tag string) ([]hub.Registration, error)
	LookupChannel(ctx context.Context, channel string) ([]hub.Registration, error)
}

type Handler struct {
	svc                NotificationService
	logger             logger.Logger
	sendSchema         *validation.Validator
	registerSchema     *validation.Validator
	reportSendFailures bool
}

type HandlerOption func(*Handler)

// WithReportSendFailures makes failed sends answer 422; when off every
// accepted send answers 200.
func WithReportSendFailures(report bool) HandlerOption {
	return func(h *Handler) {
		h.reportSendFailures = report
	}
}

func NewHandler(svc NotificationService, log logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:                svc,
		logger:             log,
		sendSchema:         validation.MustValidator(validation.NotificationRequestSchema),
		registerSchema:     validation.MustValidator(validation.RegistrationRequestSchema),
		reportSendFailures: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	var req models.NotificationRequest
	if err := h.decode(w, r, h.sendSchema, &req); err != nil {
		apperrors.WriteError(w, log, err)
		return
	}

	result, err := h.svc.Send(r.Context(), &req)
	if err != nil {
		apperrors.WriteError(w, log, err)
		return
	}

	if result.Status == dispatch.StatusFailed && h.reportSendFailures {
		stdErr := apperrors.NewNotificationSendFailedError(result.Reason)
		stdErr.Metadata = map[string]interface{}{"result": result}
		apperrors.WriteError(w, log, stdErr)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	var req models.RegistrationRequest
	if err := h.decode(w, r, h.registerSchema, &req); err != nil {
		apperrors.WriteError(w, log, err)
		return
	}

	if !h.svc.Register(r.Context(), &req) {
		apperrors.WriteError(w, log, apperrors.NewRegistrationFailedError(req.UserID))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// Lookup serves ?tag= (by tag) and ?channel= (by device token).
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)
	q := r.URL.Query()

	var (
		regs []hub.Registration
		err  error
		op   string
	)
	switch {
	case q.Get("tag") != "":
		op = "get_registrations_by_tag"
		regs, err = h.svc.Lookup(r.Context(), q.Get("tag"))
	case q.Get("channel") != "":
		op = "get_registrations_by_channel"
		regs, err = h.svc.LookupChannel(r.Context(), q.Get("channel"))
	default:
		apperrors.WriteError(w, log, apperrors.NewValidationError("query parameter tag or channel is required"))
		return
	}

	if err != nil {
		apperrors.WriteError(w, log, hubError(op, err))
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, schema *validation.Validator, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("read body: %v", err))
	}
	if err := schema.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("decode body: %v", err))
	}
	return nil
}

// hubError maps a hub failure onto the error taxonomy. StandardErrors pass through.
func hubError(operation string, err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	switch {
	case hub.IsThrottled(err):
		return apperrors.NewHubThrottledError(operation)
	case hub.IsUnauthorized(err):
		return apperrors.NewHubUnauthorizedError(err.Error())
	default:
		return apperrors.NewHubRequestFailedError(operation, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
