// Package webhook implements the outbound delivery half of spec.md §4.8:
// fireWebhooks fans a published event out to every subscribed webhook, and
// deliver makes the signed, SSRF-guarded HTTP call with bounded retries.
// Grounded on the teacher's pkg/mattermost/client.go (a small hand-rolled
// REST client wrapping net/http with its own do() helper) for the HTTP
// client shape, generalized from a fixed-base-URL bot client to an
// arbitrary tenant-supplied URL that therefore needs the SSRF guard the
// teacher's trusted-endpoint client never required. Retry scheduling uses
// github.com/cenkalti/backoff/v5, a dependency the teacher itself does not
// import but two other repos in the example pack depend on for HTTP retry
// loops — adopted here for the one component that genuinely needs bounded
// exponential backoff with a distinction between retryable and permanent
// failures.
package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/telemetry"
)

const (
	perAttemptTimeout = 10 * time.Second
	maxAttempts       = 3
	productUserAgent  = "boardkeep-kernel/1.0"
)

// Dispatcher is the events.Handler that fires webhooks for published
// envelopes. It never returns an error to the bus — spec.md §4.8 step 4:
// "never throw outward".
type Dispatcher struct {
	factory   *dal.Factory
	logger    *slog.Logger
	allowHTTP bool
}

func NewDispatcher(factory *dal.Factory, logger *slog.Logger, allowHTTP bool) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{factory: factory, logger: logger, allowHTTP: allowHTTP}
}

// Handle implements events.Handler.
func (d *Dispatcher) Handle(ctx context.Context, env events.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("webhook dispatcher panicked", "recover", r, "event", env.Type)
		}
	}()
	d.fireWebhooks(ctx, env.OrgID, string(env.Type), env)
}

type wirePayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	OrgID     uuid.UUID `json:"orgId"`
	Data      any       `json:"data"`
}

// fireWebhooks implements spec.md §4.8's fireWebhooks(orgId, event, data).
func (d *Dispatcher) fireWebhooks(ctx context.Context, orgID uuid.UUID, event string, data any) {
	hooks, err := d.factory.ForOrg(orgID).Webhooks().ListEnabledForEvent(ctx, orgID, event)
	if err != nil {
		d.logger.Error("loading webhooks", "error", err, "org", orgID)
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(wirePayload{Event: event, Timestamp: time.Now(), OrgID: orgID, Data: data})
	if err != nil {
		d.logger.Error("marshaling webhook payload", "error", err)
		return
	}

	for _, hook := range hooks {
		hook := hook
		go func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("webhook delivery panicked", "recover", r, "webhook", hook.ID)
				}
			}()
			d.deliver(context.WithoutCancel(ctx), hook, event, payload)
		}()
	}
}

// deliver implements spec.md §4.8's deliver(webhook, payload), including the
// SSRF guard, IP pinning, HMAC signing, and bounded retry policy.
func (d *Dispatcher) deliver(ctx context.Context, hook dal.Webhook, event string, payload []byte) {
	u, addrs, err := validateURL(hook.URL, d.allowHTTP)
	if err != nil {
		telemetry.WebhookSSRFBlockedTotal.Inc()
		d.logger.Warn("webhook url failed ssrf validation", "webhook", hook.ID, "error", err)
		d.recordDelivery(ctx, hook, event, payload, nil, false, 0)
		return
	}
	pinnedAddr := addrs[0]

	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	headers := map[string]string{
		"Content-Type":    "application/json",
		"X-Signature-256": "sha256=" + sign(payload, hook.Secret),
		"X-Event":         event,
		"X-Delivery":      uuid.NewString(),
		"User-Agent":      productUserAgent,
	}

	start := time.Now()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.Multiplier = 2
	eb.MaxInterval = 2 * time.Second

	status, deliverErr := backoff.Retry(ctx, func() (int, error) {
		code, attemptErr := d.attempt(ctx, u, u.Hostname(), port, pinnedAddr, headers, payload)
		if attemptErr != nil {
			return 0, attemptErr // network failure: retryable
		}
		if code >= 500 {
			return code, fmt.Errorf("webhook endpoint returned %d", code)
		}
		if code >= 400 {
			return code, backoff.Permanent(fmt.Errorf("webhook endpoint returned %d", code))
		}
		return code, nil
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(maxAttempts))

	duration := time.Since(start)
	success := deliverErr == nil
	var statusPtr *int
	if status != 0 {
		statusPtr = &status
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	telemetry.WebhookDeliveriesTotal.WithLabelValues(outcome).Inc()
	d.recordDelivery(ctx, hook, event, payload, statusPtr, success, duration)
	if !success {
		d.logger.Warn("webhook delivery failed", "webhook", hook.ID, "error", deliverErr)
	}
}

// attempt makes a single HTTP POST, pinning the connection to ip while
// preserving hostname for TLS SNI and certificate validation — spec.md
// §4.8 step 2 guards against DNS rebinding between validateURL and the
// actual connect.
func (d *Dispatcher) attempt(ctx context.Context, u *url.URL, hostname, port string, ip net.IP, headers map[string]string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
	defer cancel()

	client := pinnedClient(hostname, port, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building webhook request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	return resp.StatusCode, nil
}

func pinnedClient(hostname, port string, ip net.IP) *http.Client {
	dialer := &net.Dialer{}
	pinnedAddr := net.JoinHostPort(ip.String(), port)
	return &http.Client{
		Timeout: perAttemptTimeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, pinnedAddr)
			},
			TLSClientConfig: &tls.Config{ServerName: hostname},
		},
	}
}

func (d *Dispatcher) recordDelivery(ctx context.Context, hook dal.Webhook, event string, payload []byte, statusCode *int, success bool, duration time.Duration) {
	if err := d.factory.ForOrg(hook.OrgID).WebhookDeliveries().Append(ctx, hook.ID, event, payload, statusCode, success, duration); err != nil {
		d.logger.Error("recording webhook delivery", "webhook", hook.ID, "error", err)
	}
}
