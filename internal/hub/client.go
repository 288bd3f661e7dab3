package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"notification-gateway/internal/common/config"
	commonhttp "notification-gateway/internal/common/http"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/metrics"
	"notification-gateway/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultAPIVersion = "2020-06"
	maxErrorBody      = 512
)

// NotificationHubClient talks to the notification hub REST API using a
// SAS token derived from the namespace connection string.
type NotificationHubClient struct {
	baseURL    string
	apiVersion string
	creds      *credentials
	http       *commonhttp.Client
	obs        *observability.Observability
	logger     logger.Logger
	now        func() time.Time
}

type Option func(*NotificationHubClient)

// WithBaseURL overrides the hub URL derived from the connection string.
func WithBaseURL(u string) Option {
	return func(c *NotificationHubClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithHTTPClient(hc *commonhttp.Client) Option {
	return func(c *NotificationHubClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObservability(obs *observability.Observability) Option {
	return func(c *NotificationHubClient) {
		c.obs = obs
	}
}

func NewNotificationHubClient(cfg config.HubConfig, log logger.Logger, opts ...Option) (*NotificationHubClient, error) {
	creds, err := parseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("hub connection string: %w", err)
	}
	if cfg.HubName == "" {
		return nil, fmt.Errorf("hub name is required")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &NotificationHubClient{
		baseURL:    creds.Endpoint + url.PathEscape(cfg.HubName),
		apiVersion: apiVersion,
		creds:      creds,
		http: commonhttp.NewClient(
			config.GetDuration(cfg.Timeout),
			commonhttp.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		),
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type hubRequest struct {
	operation string
	method    string
	path      string
	query     [][2]string
	body      []byte
	headers   map[string]string
}

type hubResponse struct {
	status int
	header http.Header
	body   []byte
}

// do performs one hub call. Non-2xx responses come back as *StatusError
// alongside the response so callers can inspect 404s.
func (c *NotificationHubClient) do(ctx context.Context, r hubRequest) (*hubResponse, error) {
	ctx, span := c.obs.StartSpan(ctx, "hub."+r.operation,
		attribute.String("hub.operation", r.operation),
		attribute.String("http.method", r.method),
	)
	defer span.End()

	req, err := http.NewRequest(r.method, c.requestURL(r.path, r.query), bytes.NewReader(r.body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.operation, err)
	}
	req.Header.Set("Authorization", c.creds.sasToken(c.baseURL, c.now(), defaultTokenTTL))
	req.Header.Set("x-ms-version", "2015-01")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.DoWithContext(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		c.record(ctx, r.operation, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("hub %s: %w", r.operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, r.operation, "error", elapsed)
		return nil, fmt.Errorf("read %s response: %w", r.operation, err)
	}

	c.record(ctx, r.operation, strconv.Itoa(resp.StatusCode), elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	out := &hubResponse{status: resp.StatusCode, header: resp.Header, body: body}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Operation:  r.operation,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
		if resp.StatusCode != http.StatusNotFound {
			span.SetStatus(codes.Error, statusErr.Error())
			c.logger.Warn("Hub request failed", map[string]interface{}{
				"operation": r.operation,
				"status":    resp.StatusCode,
			})
		}
		return out, statusErr
	}

	c.logger.Debug("Hub request completed", map[string]interface{}{
		"operation":   r.operation,
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})
	return out, nil
}

func (c *NotificationHubClient) record(ctx context.Context, operation, status string, d time.Duration) {
	metrics.HubRequestDuration.WithLabelValues(operation, status).Observe(d.Seconds())
	c.obs.RecordHubCall(ctx, operation, status, d)
}

// requestURL appends api-version and the given query pairs. OData
// parameter names like $top are kept literal.
func (c *NotificationHubClient) requestURL(p string, query [][2]string) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)
	sb.WriteString(p)
	sb.WriteString("?api-version=")
	sb.WriteString(url.QueryEscape(c.apiVersion))
	for _, kv := range query {
		sb.WriteString("&")
		sb.WriteString(kv[0])
		sb.WriteString("=")
		sb.WriteString(strings.ReplaceAll(url.QueryEscape(kv[1]), "+", "%20"))
	}
	return sb.String()
}

func (c *NotificationHubClient) GetRegistrationsByTag(ctx context.Context, tag string, top int) ([]Registration, error) {
	resp, err := c.do(ctx, hubRequest{
		operation: "get_registrations_by_tag",
		method:    http.MethodGet,
		path:      "/tags/" + url.PathEscape(tag) + "/registrations",
		query:     topQuery(top),
	})
	if err != nil {
		return nil, err
	}
	return decodeRegistrationFeed(resp.body)
}

func (c *NotificationHubClient) GetRegistrationsByChannel(ctx context.Context, channel string, top int) ([]Registration, error) {
	query := [][2]string{{"$filter", fmt.Sprintf("ChannelUri eq '%s'", strings.ReplaceAll(channel, "'", "''"))}}
	resp, err := c.do(ctx, hubRequest{
		operation: "get_registrations_by_channel",
		method:    http.MethodGet,
		path:      "/registrations",
		query:     append(query, topQuery(top)...),
	})
	if err != nil {
		return nil, err
	}
	return decodeRegistrationFeed(resp.body)
}

func (c *NotificationHubClient) DeleteRegistration(ctx context.Context, registrationID string) error {
	_, err := c.do(ctx, hubRequest{
		operation: "delete_registration",
		method:    http.MethodDelete,
		path:      "/registrations/" + url.PathEscape(registrationID),
		headers:   map[string]string{"If-Match": "*"},
	})
	return err
}

func (c *NotificationHubClient) InstallationExists(ctx context.Context, installationID string) (bool, error) {
	_, err := c.do(ctx, hubRequest{
		operation: "get_installation",
		method:    http.MethodGet,
		path:      "/installations/" + url.PathEscape(installationID),
	})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *NotificationHubClient) CreateOrUpdateInstallation(ctx context.Context, installation *Installation) error {
	if installation == nil || installation.InstallationID == "" {
		return fmt.Errorf("installation id is required")
	}
	body, err := json.Marshal(installation)
	if err != nil {
		return fmt.Errorf("encode installation: %w", err)
	}
	_, err = c.do(ctx, hubRequest{
		operation: "put_installation",
		method:    http.MethodPut,
		path:      "/installations/" + url.PathEscape(installation.InstallationID),
		body:      body,
		headers:   map[string]string{"Content-Type": "application/json"},
	})
	return err
}

func (c *NotificationHubClient) SendTemplateNotification(ctx context.Context, properties map[string]string, tagExpression string) (*SendResult, error) {
	body, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("encode template properties: %w", err)
	}

	headers := map[string]string{
		"Content-Type":                  "application/json;charset=utf-8",
		"ServiceBusNotification-Format": "template",
	}
	if tagExpression != "" {
		headers["ServiceBusNotification-Tags"] = tagExpression
	}

	resp, err := c.do(ctx, hubRequest{
		operation: "send_template_notification",
		method:    http.MethodPost,
		path:      "/messages",
		body:      body,
		headers:   headers,
	})
	if err != nil {
		return nil, err
	}

	return &SendResult{
		NotificationID: notificationIDFromLocation(resp.header.Get("Location")),
		TrackingID:     resp.header.Get("TrackingId"),
	}, nil
}

func (c *NotificationHubClient) GetNotificationOutcomeDetails(ctx context.Context, notificationID string) (*NotificationOutcome, error) {
	resp, err := c.do(ctx, hubRequest{
		operation: "get_notification_outcome",
		method:    http.MethodGet,
		path:      "/messages/" + url.PathEscape(notificationID),
	})
	if err != nil {
		return nil, err
	}
	outcome, err := decodeNotificationDetails(resp.body)
	if err != nil {
		return nil, err
	}
	if outcome.NotificationID == "" {
		outcome.NotificationID = notificationID
	}
	return outcome, nil
}

func (c *NotificationHubClient) CreateTemplateRegistration(ctx context.Context, platform Platform, channel, bodyTemplate string, tags []string) (*Registration, error) {
	body, err := encodeTemplateRegistration(platform, channel, bodyTemplate, tags)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, hubRequest{
		operation: "create_registration",
		method:    http.MethodPost,
		path:      "/registrations",
		body:      body,
		headers:   map[string]string{"Content-Type": "application/atom+xml;type=entry;charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	return decodeRegistrationEntry(resp.body)
}

func topQuery(top int) [][2]string {
	if top <= 0 {
		return nil
	}
	return [][2]string{{"$top", strconv.Itoa(top)}}
}

// notificationIDFromLocation takes the last path segment of
// https://<ns>/<hub>/messages/<id>?api-version=...
func notificationIDFromLocation(location string) string {
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	id := path.Base(u.Path)
	if id == "." || id == "/" || id == "messages" {
		return ""
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
