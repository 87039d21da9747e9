// File: internal/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/degenlabs/rollfeed/internal/config"
	"github.com/degenlabs/rollfeed/internal/metrics"
	"github.com/degenlabs/rollfeed/internal/models"
	"github.com/degenlabs/rollfeed/pkg/utils"
)

// WebhookNotifier pushes live rolls to a configured webhook URL as JSON.
// Delivery is best-effort with retries; a roll that fails all attempts is
// logged and dropped, never re-queued.
type WebhookNotifier struct {
	config         *config.NotifyConfig
	client         *http.Client
	logger         *logrus.Entry
	metricsManager *metrics.Manager
}

// webhookPayload is the body posted for each roll
type webhookPayload struct {
	Event string       `json:"event"`
	Roll  *models.Roll `json:"roll"`
	At    time.Time    `json:"at"`
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.NotifyConfig, metricsManager *metrics.Manager) *WebhookNotifier {
	return &WebhookNotifier{
		config:         cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		logger:         utils.WithComponent("notify"),
		metricsManager: metricsManager,
	}
}

// NotifyRoll delivers one roll to the webhook, retrying with a fixed delay
func (n *WebhookNotifier) NotifyRoll(ctx context.Context, roll *models.Roll) {
	if !n.config.Enabled || n.config.WebhookURL == "" {
		return
	}

	payload := webhookPayload{
		Event: "roll",
		Roll:  roll,
		At:    time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.WithField("error", err).Error("Failed to marshal webhook payload")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= n.config.RetryAttempts; attempt++ {
		if err := n.post(ctx, body); err != nil {
			lastErr = err

			select {
			case <-ctx.Done():
				return
			case <-time.After(n.config.RetryDelay):
			}
			continue
		}

		if n.metricsManager != nil {
			n.metricsManager.GetPrometheusMetrics().RecordWebhookSent(string(roll.Game))
		}

		n.logger.WithFields(logrus.Fields{
			"game":    roll.Game,
			"tx_hash": roll.TxHash,
			"attempt": attempt,
		}).Debug("Roll webhook delivered")
		return
	}

	if n.metricsManager != nil {
		n.metricsManager.GetPrometheusMetrics().RecordWebhookFailed(string(roll.Game))
	}

	n.logger.WithFields(logrus.Fields{
		"game":     roll.Game,
		"tx_hash":  roll.TxHash,
		"attempts": n.config.RetryAttempts,
		"error":    lastErr,
	}).Error("Roll webhook delivery failed")
}

// post performs one delivery attempt
func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
