package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim/batch"
)

const (
	// DefaultWebhookTimeout bounds one delivery attempt.
	DefaultWebhookTimeout = 5 * time.Second
	// DefaultWebhookAttempts is the number of delivery attempts.
	DefaultWebhookAttempts = 3
)

// ErrWebhookRejected is returned when the receiver answers with a 4xx status.
var ErrWebhookRejected = errors.New("control: webhook rejected")

// Webhook posts the batch Summary as JSON to a URL when a batch completes.
// Delivery failures are logged and never affect the batch.
type Webhook struct {
	url      string
	client   *http.Client
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

// WebhookOption configures a Webhook.
type WebhookOption func(*webhookConfig)

type webhookConfig struct {
	timeout   time.Duration
	attempts  int
	backoff   time.Duration
	logger    *zap.Logger
	providers Providers
	base      http.RoundTripper
}

// WithWebhookTimeout sets the per-attempt timeout.
func WithWebhookTimeout(d time.Duration) WebhookOption {
	return func(c *webhookConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithWebhookRetries sets the attempt count and the initial backoff between
// attempts, which grows exponentially.
func WithWebhookRetries(attempts int, backoff time.Duration) WebhookOption {
	return func(c *webhookConfig) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(l *zap.Logger) WebhookOption {
	return func(c *webhookConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWebhookProviders sets the OTel providers for the client transport.
func WithWebhookProviders(p Providers) WebhookOption {
	return func(c *webhookConfig) {
		c.providers = p
	}
}

// WithWebhookTransport sets the base transport before OTel wrapping.
func WithWebhookTransport(rt http.RoundTripper) WebhookOption {
	return func(c *webhookConfig) {
		c.base = rt
	}
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("control: empty webhook url")
	}

	cfg := webhookConfig{
		timeout:  DefaultWebhookTimeout,
		attempts: DefaultWebhookAttempts,
		backoff:  time.Second,
		logger:   zap.NewNop(),
		base:     http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Webhook{
		url: url,
		client: &http.Client{
			Transport: otelhttp.NewTransport(cfg.base, cfg.providers.options()...),
			Timeout:   cfg.timeout,
		},
		logger:   cfg.logger,
		attempts: cfg.attempts,
		backoff:  cfg.backoff,
	}, nil
}

// OnProgress is a no-op.
func (w *Webhook) OnProgress(int, int) {}

// OnComplete delivers the summary and logs a failure.
func (w *Webhook) OnComplete(s batch.Summary) {
	if err := w.Send(context.Background(), s); err != nil {
		w.logger.Warn("completion webhook failed", zap.String("url", w.url), zap.Error(err))
	}
}

// Send posts the summary, retrying network errors and 5xx answers with an
// exponential backoff. A 4xx answer is not retried.
func (w *Webhook) Send(ctx context.Context, s batch.Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.backoff
	b.MaxInterval = 30 * time.Second

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := w.post(ctx, payload)
		if errors.Is(err, ErrWebhookRejected) {
			return struct{}{}, backoff.Permanent(err)
		}

		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(w.attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.Debug("completion webhook retry",
				zap.String("url", w.url),
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}),
	)
	switch {
	case err == nil:
		w.logger.Debug("completion webhook delivered", zap.String("url", w.url), zap.Int("attempt", attempt))
		return nil
	case errors.Is(err, ErrWebhookRejected), ctx.Err() != nil:
		return err
	default:
		return fmt.Errorf("webhook: %d attempts: %w", attempt, err)
	}
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "remotesim-webhook/1")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	default:
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
}
