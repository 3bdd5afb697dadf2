// Package notify delivers best-effort assignment notifications to
// engineers through an external webhook, shielded by a circuit breaker.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

const defaultTimeout = 5 * time.Second

// WebhookNotifier posts notification payloads to a configured endpoint.
// The circuit breaker keeps a dead endpoint from slowing every
// assignment down to its timeout.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:    "notification-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: defaultTimeout},
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

// Send posts one notification. Returns the breaker's error while open.
func (n *WebhookNotifier) Send(ctx context.Context, kind string, recipient uuid.UUID, data map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"kind":      kind,
		"recipient": recipient,
		"data":      data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = n.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		n.logger.Warn("notification delivery failed",
			"kind", kind,
			"recipient", recipient,
			"error", err,
		)
	}
	return err
}
