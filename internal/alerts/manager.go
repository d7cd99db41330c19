package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/internal/retry"
	"github.com/rawblock/solsecurity/pkg/models"
)

// Alert & Webhook System
//
// Structured alert emission for wallet monitoring. Alerts are:
//   1. Broadcast to the live stream (WebSocket subscribers)
//   2. Pushed to registered webhook endpoints (Slack, Discord, SIEM)
//   3. Stored in memory for recent alert history
//
// Severity follows the analysis outcome:
//   mimicry with dust     → high
//   mimicry without dust  → medium
//   anything else         → no alert

const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"

	TypePoisoning = "poisoning_alert"

	webhookTimeout = 5 * time.Second
)

var severityLevels = map[string]int{
	SeverityInfo: 0, SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4,
}

// Alert is a structured security alert for one wallet
type Alert struct {
	ID                         string         `json:"id"`
	Type                       string         `json:"type"`
	Timestamp                  time.Time      `json:"timestamp"`
	Severity                   string         `json:"severity"`
	Source                     string         `json:"source"` // "api" or "watcher"
	Title                      string         `json:"title"`
	Description                string         `json:"description"`
	RunID                      string         `json:"runId,omitempty"`
	WalletAddress              string         `json:"walletAddress"`
	Outcome                    models.Outcome `json:"outcome"`
	ConfirmedPoisoningAttempts int            `json:"confirmedPoisoningAttempts"`
	DustingAttempts            int            `json:"dustingAttempts"`
	MimickedAddresses          []string       `json:"mimickedAddresses,omitempty"`
}

// FromAnalysis builds an alert from an analysis result. The second return is
// false for outcomes without mimicry.
func FromAnalysis(source string, r *models.AnalysisResult) (Alert, bool) {
	if r == nil {
		return Alert{}, false
	}

	var severity, title string
	switch r.Outcome {
	case models.OutcomeMimicryAndDust:
		severity, title = SeverityHigh, "Address poisoning with dust transfers"
	case models.OutcomeMimicryNoDust:
		severity, title = SeverityMedium, "Possible address poisoning"
	default:
		return Alert{}, false
	}

	return Alert{
		Type:                       TypePoisoning,
		Severity:                   severity,
		Source:                     source,
		Title:                      title,
		Description:                r.Message,
		RunID:                      r.RunID,
		WalletAddress:              r.WalletAddress,
		Outcome:                    r.Outcome,
		ConfirmedPoisoningAttempts: r.ConfirmedPoisoningAttempts,
		DustingAttempts:            r.DustingAttempts,
		MimickedAddresses:          r.MimickedAddresses,
	}, true
}

// WebhookEndpoint is a registered webhook receiver
type WebhookEndpoint struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Enabled     bool              `json:"enabled"`
	Headers     map[string]string `json:"headers,omitempty"`
	MinSeverity string            `json:"minSeverity"` // Only send alerts >= this severity
}

// Manager handles alert emission and webhook delivery
type Manager struct {
	mu           sync.RWMutex
	webhooks     []WebhookEndpoint
	recentAlerts []Alert
	maxHistory   int
	httpClient   *http.Client
	broadcast    func(Alert)
	retry        retry.Policy
	wg           sync.WaitGroup
	logger       zerolog.Logger
}

// NewManager creates a new alert system. broadcast may be nil.
func NewManager(broadcast func(Alert), maxHistory int, logger zerolog.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Manager{
		webhooks:     make([]WebhookEndpoint, 0),
		recentAlerts: make([]Alert, 0),
		maxHistory:   maxHistory,
		httpClient:   &http.Client{Timeout: webhookTimeout},
		broadcast:    broadcast,
		retry: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Jitter:      250 * time.Millisecond,
		},
		logger: logger.With().Str("component", "alerts").Logger(),
	}
}

// RegisterWebhook adds a webhook endpoint
func (am *Manager) RegisterWebhook(name, url, minSeverity string, headers map[string]string) {
	if _, ok := severityLevels[minSeverity]; !ok {
		minSeverity = SeverityMedium
	}

	am.mu.Lock()
	defer am.mu.Unlock()

	am.webhooks = append(am.webhooks, WebhookEndpoint{
		Name:        name,
		URL:         url,
		Enabled:     true,
		Headers:     headers,
		MinSeverity: minSeverity,
	})

	am.logger.Info().Str("webhook", name).Str("min_severity", minSeverity).Msg("Registered webhook")
}

// RemoveWebhook removes a webhook by name
func (am *Manager) RemoveWebhook(name string) {
	am.mu.Lock()
	defer am.mu.Unlock()

	for i, wh := range am.webhooks {
		if wh.Name == name {
			am.webhooks = append(am.webhooks[:i], am.webhooks[i+1:]...)
			return
		}
	}
}

// Emit stores an alert and distributes it to the stream and webhooks.
// Webhook delivery is asynchronous.
func (am *Manager) Emit(alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	am.mu.Lock()
	am.recentAlerts = append(am.recentAlerts, alert)
	if len(am.recentAlerts) > am.maxHistory {
		am.recentAlerts = am.recentAlerts[len(am.recentAlerts)-am.maxHistory:]
	}
	webhooks := make([]WebhookEndpoint, len(am.webhooks))
	copy(webhooks, am.webhooks)
	am.mu.Unlock()

	if am.broadcast != nil {
		am.broadcast(alert)
	}

	for _, wh := range webhooks {
		if !wh.Enabled || !severityMeetsThreshold(alert.Severity, wh.MinSeverity) {
			continue
		}
		am.wg.Add(1)
		go func(wh WebhookEndpoint) {
			defer am.wg.Done()
			am.deliver(wh, alert)
		}(wh)
	}

	am.logger.Info().
		Str("severity", alert.Severity).
		Str("source", alert.Source).
		Str("wallet", alert.WalletAddress).
		Int("attempts", alert.ConfirmedPoisoningAttempts).
		Msg(alert.Title)
}

// EmitAnalysis emits an alert for results with mimicry and reports whether one was sent
func (am *Manager) EmitAnalysis(source string, r *models.AnalysisResult) bool {
	alert, ok := FromAnalysis(source, r)
	if !ok {
		return false
	}
	am.Emit(alert)
	return true
}

// Recent returns the most recent alerts, newest first
func (am *Manager) Recent(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.recentAlerts) {
		limit = len(am.recentAlerts)
	}

	start := len(am.recentAlerts) - limit
	result := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		result[i] = am.recentAlerts[start+limit-1-i]
	}
	return result
}

// BySeverity returns alerts matching a minimum severity
func (am *Manager) BySeverity(minSeverity string) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	var filtered []Alert
	for _, alert := range am.recentAlerts {
		if severityMeetsThreshold(alert.Severity, minSeverity) {
			filtered = append(filtered, alert)
		}
	}
	return filtered
}

// RecentBySeverity returns up to limit alerts meeting a minimum severity, newest first
func (am *Manager) RecentBySeverity(minSeverity string, limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	result := make([]Alert, 0)
	for i := len(am.recentAlerts) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		if severityMeetsThreshold(am.recentAlerts[i].Severity, minSeverity) {
			result = append(result, am.recentAlerts[i])
		}
	}
	return result
}

// Wait blocks until in-flight webhook deliveries finish
func (am *Manager) Wait() {
	am.wg.Wait()
}

func (am *Manager) deliver(wh WebhookEndpoint, alert Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		am.logger.Error().Err(err).Msg("Failed to marshal alert")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*webhookTimeout)
	defer cancel()

	policy := am.retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		am.logger.Debug().Err(err).Str("webhook", wh.Name).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying webhook")
	}

	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		return am.post(ctx, wh, payload)
	})
	if err != nil {
		am.logger.Warn().Err(err).Str("webhook", wh.Name).Msg("Webhook delivery failed")
	}
}

func (am *Manager) post(ctx context.Context, wh WebhookEndpoint, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, val := range wh.Headers {
		req.Header.Set(key, val)
	}

	resp, err := am.httpClient.Do(req)
	if err != nil {
		return &models.FetchError{Source: "webhook:" + wh.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &models.FetchError{Source: "webhook:" + wh.Name, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// severityMeetsThreshold checks if a severity level meets the minimum
func severityMeetsThreshold(severity, minimum string) bool {
	return severityLevels[severity] >= severityLevels[minimum]
}
