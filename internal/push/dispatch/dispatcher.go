// internal/push/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notification-gateway/internal/common/config"
	apperrors "notification-gateway/internal/common/errors"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/metrics"
	"notification-gateway/internal/common/observability"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/models"
	"notification-gateway/internal/push/tags"
	"notification-gateway/internal/push/templates"

	"go.opentelemetry.io/otel/attribute"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

type Dispatcher struct {
	config *Config
	hub    hub.Client
	obs    *observability.Observability
	logger logger.Logger
	wait   WaitFunc
}

type Option func(*Dispatcher)

func WithObservability(obs *observability.Observability) Option {
	return func(d *Dispatcher) {
		d.obs = obs
	}
}

// WithWaitFunc replaces the wait between outcome polls.
func WithWaitFunc(w WaitFunc) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.wait = w
		}
	}
}

func NewDispatcher(cfg *Config, client hub.Client, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config: cfg,
		hub:    client,
		logger: log.WithFields(map[string]interface{}{"component": "dispatch"}),
		wait:   sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Parameters builds the template properties for req.
func (d *Dispatcher) Parameters(req *models.NotificationRequest) map[string]string {
	sound := req.Sound
	if sound == "" {
		sound = d.config.DefaultSound
	}
	return map[string]string{
		templates.TitleParam:       req.Title,
		templates.BodyParam:        req.Body,
		templates.JSONPayloadParam: req.Json,
		templates.SoundParam:       sound,
		templates.IOSSoundParam:    sound + d.config.IOSSoundExtension,
	}
}

// Send submits a templated notification to the request's recipients and
// waits a bounded time for the outcome. Hub failures are reported in the
// Result; the error return is reserved for requests rejected up front.
func (d *Dispatcher) Send(ctx context.Context, req *models.NotificationRequest) (*Result, error) {
	recipients := req.Recipients()
	log := logger.FromContext(ctx, d.logger).WithFields(map[string]interface{}{
		"recipients": len(recipients),
		"urgency":    urgency(req.IsCritical),
	})

	if len(recipients) == 0 {
		log.Debug("No recipients, skipping send", nil)
		return d.finish(ctx, req, &Result{Status: StatusSkipped}), nil
	}

	batches, dropped, err := d.batches(recipients)
	if err != nil {
		log.Warn("Rejected send", map[string]interface{}{"error": err})
		return nil, err
	}
	if dropped > 0 {
		metrics.RecipientsTruncated.Add(float64(dropped))
		log.Warn("Recipient list truncated", map[string]interface{}{
			"dropped": dropped,
			"max":     d.config.MaxTags,
		})
	}

	ctx, span := d.obs.StartSpan(ctx, "dispatch.send",
		attribute.Int("recipients", len(recipients)),
		attribute.Int("batches", len(batches)),
		attribute.Bool("critical", req.IsCritical),
	)
	defer span.End()

	params := d.Parameters(req)
	pending := make([]*pendingBatch, 0, len(batches))
	for _, batch := range batches {
		expr := tags.BuildExpression(batch, req.IsCritical, d.config.MaxTags)
		pending = append(pending, d.submit(ctx, params, expr, log.WithFields(map[string]interface{}{"tagExpression": expr})))
	}
	d.pollOutcomes(ctx, pending)

	results := make([]batchResult, len(pending))
	for i, p := range pending {
		results[i] = p.batchResult
	}

	result := aggregate(results)
	result.Recipients = len(recipients)
	result.Dropped = dropped
	span.SetAttributes(attribute.String("status", string(result.Status)))

	return d.finish(ctx, req, result), nil
}

func (d *Dispatcher) finish(ctx context.Context, req *models.NotificationRequest, result *Result) *Result {
	metrics.NotificationsDispatched.WithLabelValues(string(result.Status), urgency(req.IsCritical)).Inc()
	d.obs.RecordDispatch(ctx, string(result.Status))
	return result
}

// batches applies the overflow policy and returns the recipient groups to
// send, plus the number of recipients left out.
func (d *Dispatcher) batches(recipients []string) ([][]string, int, error) {
	max := d.config.MaxTags
	if len(recipients) <= max {
		return [][]string{recipients}, 0, nil
	}

	switch d.config.OnOverflow {
	case config.OverflowChunk:
		return tags.Chunk(recipients, max), 0, nil
	case config.OverflowError:
		return nil, 0, apperrors.NewTooManyRecipientsError(len(recipients), max)
	default:
		return [][]string{recipients[:max]}, len(recipients) - max, nil
	}
}

// pendingBatch is one submitted tag expression and what is known of its outcome.
type pendingBatch struct {
	batchResult
	log      logger.Logger
	polls    int
	state    hub.OutcomeState
	resolved bool
}

func (d *Dispatcher) submit(ctx context.Context, params map[string]string, expr string, log logger.Logger) *pendingBatch {
	p := &pendingBatch{log: log}
	if err := ctx.Err(); err != nil {
		p.status, p.reason, p.resolved = StatusFailed, fmt.Sprintf("send cancelled: %v", err), true
		return p
	}

	res, err := d.hub.SendTemplateNotification(ctx, params, expr)
	if err != nil {
		log.Error("Notification send failed", map[string]interface{}{"error": err})
		reason := err.Error()
		if hub.IsThrottled(err) {
			reason = "hub throttled the request: " + reason
		}
		p.status, p.reason, p.resolved = StatusFailed, reason, true
		return p
	}

	if res == nil || res.NotificationID == "" {
		log.Warn("Hub returned no notification id, outcome not tracked", nil)
		p.status, p.reason, p.resolved = StatusSentUnconfirmed, "no notification id returned", true
		return p
	}

	p.notificationID = res.NotificationID
	p.log = log.WithFields(map[string]interface{}{"notificationId": res.NotificationID})
	return p
}

// pollOutcomes queries every unresolved batch once per round and waits
// PollInterval between rounds. The MaxPolls round budget is shared by all
// batches of a send, so the total wait does not grow with the batch count.
func (d *Dispatcher) pollOutcomes(ctx context.Context, pending []*pendingBatch) {
	maxPolls := d.config.MaxPolls()

	for round := 1; round <= maxPolls; round++ {
		open := 0
		for _, p := range pending {
			if p.resolved {
				continue
			}
			p.polls++
			outcome, err := d.hub.GetNotificationOutcomeDetails(ctx, p.notificationID)
			if err != nil {
				d.settle(p, err)
				continue
			}
			p.state = outcome.State
			if p.state != hub.StateProcessing {
				d.settle(p, nil)
				continue
			}
			open++
		}
		if open == 0 || round == maxPolls {
			break
		}

		if err := d.wait(ctx, d.config.PollInterval); err != nil {
			for _, p := range pending {
				if !p.resolved {
					d.settle(p, err)
				}
			}
			return
		}
	}

	for _, p := range pending {
		if !p.resolved {
			d.settle(p, nil)
		}
	}
}

// settle derives the batch status from the last poll error or state.
func (d *Dispatcher) settle(p *pendingBatch, err error) {
	metrics.OutcomePolls.Observe(float64(p.polls))
	p.resolved = true

	switch {
	case err != nil:
		p.log.Warn("Outcome check stopped", map[string]interface{}{"error": err, "polls": p.polls})
		p.status = StatusSentUnconfirmed
		p.reason = fmt.Sprintf("outcome check failed: %v", err)
	case p.state == hub.StateProcessing:
		p.log.Warn("Outcome still processing after polling budget", map[string]interface{}{"polls": p.polls})
		p.status = StatusSentUnconfirmed
		p.reason = fmt.Sprintf("outcome still %s after %d polls", p.state, p.polls)
	case p.state.Failed():
		p.log.Error("Notification was not delivered", map[string]interface{}{"state": string(p.state)})
		p.status = StatusFailed
		p.reason = fmt.Sprintf("notification %s", p.state)
	default:
		p.log.Info("Notification dispatched", map[string]interface{}{"state": string(p.state), "polls": p.polls})
		p.status = StatusSent
	}
}

func aggregate(results []batchResult) *Result {
	result := &Result{Status: StatusSent}
	var failures, unconfirmed []string

	for _, r := range results {
		if r.notificationID != "" {
			result.NotificationIDs = append(result.NotificationIDs, r.notificationID)
		}
		switch r.status {
		case StatusFailed:
			failures = append(failures, r.reason)
		case StatusSentUnconfirmed:
			unconfirmed = append(unconfirmed, r.reason)
		}
	}

	switch {
	case len(failures) > 0:
		result.Status = StatusFailed
		result.Reason = strings.Join(failures, "; ")
		if len(results) > 1 {
			result.Reason = fmt.Sprintf("%d of %d batches failed: %s", len(failures), len(results), result.Reason)
		}
	case len(unconfirmed) > 0:
		result.Status = StatusSentUnconfirmed
		result.Reason = strings.Join(unconfirmed, "; ")
	}
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
