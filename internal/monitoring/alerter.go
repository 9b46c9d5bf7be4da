package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/config"
	"github.com/sells-group/edmap/internal/join"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLoadFailure AlertType = "dataset_load_failure"
	AlertJoinMisses  AlertType = "join_misses"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// LoadStatus is the outcome of one dataset load as seen by the alerter.
type LoadStatus struct {
	// Trigger names what started the load, e.g. "startup" or "reload".
	Trigger string
	Err     error
	Report  join.Report
}

// Alerter evaluates load outcomes against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client

	mu       sync.Mutex
	failures int
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate records status and returns any alerts it triggers. A failure
// alert fires once the consecutive failure count reaches the threshold; a
// successful load resets the count.
func (a *Alerter) Evaluate(status LoadStatus) []Alert {
	now := time.Now().UTC()

	a.mu.Lock()
	if status.Err != nil {
		a.failures++
	} else {
		a.failures = 0
	}
	failures := a.failures
	a.mu.Unlock()

	if status.Err != nil {
		if failures < a.cfg.FailureThreshold {
			return nil
		}
		return []Alert{{
			Type:     AlertLoadFailure,
			Severity: "high",
			Message: fmt.Sprintf("Dataset %s load failed (%d consecutive): %v",
				status.Trigger, failures, status.Err),
			Details: map[string]any{
				"trigger":     status.Trigger,
				"consecutive": failures,
				"error":       status.Err.Error(),
			},
			Timestamp: now,
		}}
	}

	misses := status.Report.Misses()
	if a.cfg.MaxJoinMisses > 0 && misses > a.cfg.MaxJoinMisses {
		return []Alert{{
			Type:     AlertJoinMisses,
			Severity: "medium",
			Message: fmt.Sprintf("%d region codes failed to join (threshold %d)",
				misses, a.cfg.MaxJoinMisses),
			Details: map[string]any{
				"geo_only":     status.Report.GeoOnly,
				"tabular_only": status.Report.TabularOnly,
				"matched":      status.Report.Matched,
			},
			Timestamp: now,
		}}
	}
	return nil
}

// Notify evaluates status and sends whatever it triggers. Returns the
// number of alerts sent.
func (a *Alerter) Notify(ctx context.Context, status LoadStatus) int {
	return a.SendAlerts(ctx, a.Evaluate(status))
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
