// Package service is the gateway facade: send, register and lookup.
package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "notification-gateway/internal/common/errors"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/models"
	"notification-gateway/internal/push/dispatch"
)

type Sender interface {
	Send(ctx context.Context, req *models.NotificationRequest) (*dispatch.Result, error)
}

type Registrar interface {
	Register(ctx context.Context, req *models.RegistrationRequest) bool
}

type Config struct {
	LookupLimit int
}

type Service struct {
	config    Config
	sender    Sender
	registrar Registrar
	hub       hub.Client
	logger    logger.Logger
}

func New(cfg Config, sender Sender, registrar Registrar, client hub.Client, log logger.Logger) *Service {
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = 1000
	}
	return &Service{
		config:    cfg,
		sender:    sender,
		registrar: registrar,
		hub:       client,
		logger:    log.WithFields(map[string]interface{}{"component": "service"}),
	}
}

func (s *Service) Send(ctx context.Context, req *models.NotificationRequest) (*dispatch.Result, error) {
	if req == nil {
		return nil, apperrors.NewValidationError("notification request is required")
	}
	return s.sender.Send(ctx, req)
}

func (s *Service) Register(ctx context.Context, req *models.RegistrationRequest) bool {
	if req == nil {
		return false
	}
	return s.registrar.Register(ctx, req)
}

// Lookup returns the hub registrations carrying tag, unmodified.
func (s *Service) Lookup(ctx context.Context, tag string) ([]hub.Registration, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, apperrors.NewValidationError("tag is required")
	}
	regs, err := s.hub.GetRegistrationsByTag(ctx, tag, s.config.LookupLimit)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Registration lookup failed", map[string]interface{}{
			"tag":   tag,
			"error": err,
		})
		return nil, fmt.Errorf("lookup registrations by tag: %w", err)
	}
	return nonNil(regs), nil
}

// LookupChannel returns the registrations bound to a device token. Tokens
// are stored upper-cased by the hub, so the key is upper-cased first.
func (s *Service) LookupChannel(ctx context.Context, channel string) ([]hub.Registration, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, apperrors.NewValidationError("channel is required")
	}
	channel = strings.ToUpper(channel)
	regs, err := s.hub.GetRegistrationsByChannel(ctx, channel, s.config.LookupLimit)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Channel lookup failed", map[string]interface{}{
			"channel": channel,
			"error":   err,
		})
		return nil, fmt.Errorf("lookup registrations by channel: %w", err)
	}
	return nonNil(regs), nil
}

func nonNil(regs []hub.Registration) []hub.Registration {
	if regs == nil {
		return []hub.Registration{}
	}
	return regs
}
