// Package alerting sends best-effort Slack and Discord webhook notifications
// for operator-relevant events: opportunities found, trades executed or
// failed, and circuit breaker trips. Delivery failures are logged and
// swallowed; alerting is never allowed to affect trading control flow.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is alert severity, ordered INFO < WARNING < ERROR < CRITICAL.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

var levelOrder = map[Level]int{
	LevelInfo:     0,
	LevelWarning:  1,
	LevelError:    2,
	LevelCritical: 3,
}

// Alert is one notification to deliver to the configured webhooks.
type Alert struct {
	Level     Level
	Title     string
	Message   string
	Timestamp time.Time
	Details   map[string]string
}

// Config holds webhook destinations and delivery policy.
type Config struct {
	SlackWebhookURL   string
	DiscordWebhookURL string
	MinLevel          Level
	RateLimitSeconds  int
}

// Manager delivers alerts to Slack and/or Discord, suppressing repeats of
// the same (level, title) within RateLimitSeconds.
type Manager struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int

	now func() time.Time
}

// New creates a Manager. A zero-value Config (no webhooks) is valid; Send
// then always returns false.
func New(cfg Config, logger *zap.Logger) *Manager {
	if cfg.RateLimitSeconds <= 0 {
		cfg.RateLimitSeconds = 60
	}
	if cfg.MinLevel == "" {
		cfg.MinLevel = LevelInfo
	}
	m := &Manager{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		lastSent:   make(map[string]time.Time),
		suppressed: make(map[string]int),
		now:        time.Now,
	}
	logger.Info("alert-manager-initialized",
		zap.Bool("slack_configured", cfg.SlackWebhookURL != ""),
		zap.Bool("discord_configured", cfg.DiscordWebhookURL != ""))
	return m
}

// Send delivers alert to every configured webhook, unless it is below
// MinLevel or rate-limited. It returns true iff every configured webhook
// accepted the alert.
func (m *Manager) Send(ctx context.Context, alert Alert) bool {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = m.now()
	}

	if !m.shouldSend(alert) {
		m.logger.Debug("alert-rate-limited", zap.String("title", alert.Title))
		return false
	}

	if m.cfg.SlackWebhookURL == "" && m.cfg.DiscordWebhookURL == "" {
		m.logger.Warn("alert-no-webhooks-configured")
		return false
	}

	var wg sync.WaitGroup
	results := make(chan bool, 2)

	if m.cfg.SlackWebhookURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.sendSlack(ctx, alert)
		}()
	}
	if m.cfg.DiscordWebhookURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.sendDiscord(ctx, alert)
		}()
	}

	wg.Wait()
	close(results)

	success := true
	for ok := range results {
		success = success && ok
	}
	return success
}

func (m *Manager) shouldSend(alert Alert) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if levelOrder[alert.Level] < levelOrder[m.cfg.MinLevel] {
		return false
	}

	key := string(alert.Level) + ":" + alert.Title
	if last, ok := m.lastSent[key]; ok {
		if m.now().Sub(last) < time.Duration(m.cfg.RateLimitSeconds)*time.Second {
			m.suppressed[key]++
			return false
		}
	}

	m.lastSent[key] = m.now()
	m.suppressed[key] = 0
	return true
}

var slackColors = map[Level]string{
	LevelInfo:     "#36a64f",
	LevelWarning:  "#ff9800",
	LevelError:    "#f44336",
	LevelCritical: "#9c27b0",
}

var discordColors = map[Level]int{
	LevelInfo:     3592283,
	LevelWarning:  16750848,
	LevelError:    15930932,
	LevelCritical: 10233904,
}

var levelEmoji = map[Level]string{
	LevelInfo:     ":information_source:",
	LevelWarning:  ":warning:",
	LevelError:    ":x:",
	LevelCritical: ":rotating_light:",
}

func (m *Manager) sendSlack(ctx context.Context, alert Alert) bool {
	fields := make([]map[string]any, 0, len(alert.Details))
	for k, v := range alert.Details {
		fields = append(fields, map[string]any{"title": k, "value": v, "short": true})
	}

	payload := map[string]any{
		"attachments": []map[string]any{
			{
				"color":  slackColors[alert.Level],
				"title":  fmt.Sprintf("%s %s", levelEmoji[alert.Level], alert.Title),
				"text":   alert.Message,
				"ts":     alert.Timestamp.Unix(),
				"footer": "Kalshi Arbitrage Bot",
				"fields": fields,
			},
		},
	}

	if ok := m.postWebhook(ctx, m.cfg.SlackWebhookURL, payload); !ok {
		alertDeliveryFailures.WithLabelValues("slack").Inc()
		return false
	}
	return true
}

func (m *Manager) sendDiscord(ctx context.Context, alert Alert) bool {
	fields := make([]map[string]any, 0, len(alert.Details))
	for k, v := range alert.Details {
		fields = append(fields, map[string]any{"name": k, "value": v, "inline": true})
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("%s %s", levelEmoji[alert.Level], alert.Title),
				"description": alert.Message,
				"color":       discordColors[alert.Level],
				"timestamp":   alert.Timestamp.Format(time.RFC3339),
				"footer":      map[string]string{"text": "Kalshi Arbitrage Bot"},
				"fields":      fields,
			},
		},
	}

	if ok := m.postWebhook(ctx, m.cfg.DiscordWebhookURL, payload); !ok {
		alertDeliveryFailures.WithLabelValues("discord").Inc()
		return false
	}
	return true
}

func (m *Manager) postWebhook(ctx context.Context, url string, payload map[string]any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("alert-marshal-failed", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("alert-request-build-failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Error("alert-send-failed", zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
	if !ok {
		m.logger.Error("alert-webhook-rejected", zap.Int("status", resp.StatusCode))
	}
	alertsSentTotal.Inc()
	return ok
}

// OpportunityDetected notifies that a strategy found a profitable trade.
func (m *Manager) OpportunityDetected(ctx context.Context, arbType, eventTicker string, profitCents int) {
	m.Send(ctx, Alert{
		Level:   LevelInfo,
		Title:   "Arbitrage Opportunity Detected",
		Message: fmt.Sprintf("Found %s arbitrage in %s", arbType, eventTicker),
		Details: map[string]string{
			"Type":   arbType,
			"Event":  eventTicker,
			"Profit": formatCents(profitCents),
		},
	})
}

// TradeExecuted notifies that an order group completed successfully.
func (m *Manager) TradeExecuted(ctx context.Context, eventTicker string, profitCents, legs int) {
	m.Send(ctx, Alert{
		Level:   LevelInfo,
		Title:   "Trade Executed",
		Message: fmt.Sprintf("Successfully executed %d-leg arbitrage", legs),
		Details: map[string]string{
			"Event":  eventTicker,
			"Profit": formatCents(profitCents),
			"Legs":   fmt.Sprintf("%d", legs),
		},
	})
}

// TradeFailed notifies that an order group failed.
func (m *Manager) TradeFailed(ctx context.Context, eventTicker, errMessage string) {
	m.Send(ctx, Alert{
		Level:   LevelError,
		Title:   "Trade Failed",
		Message: fmt.Sprintf("Failed to execute arbitrage: %s", errMessage),
		Details: map[string]string{
			"Event": eventTicker,
			"Error": errMessage,
		},
	})
}

// CircuitBreakerTripped notifies that trading has halted.
func (m *Manager) CircuitBreakerTripped(ctx context.Context, reason string, dailyLossCents, exposureCents int) {
	m.Send(ctx, Alert{
		Level:   LevelCritical,
		Title:   "Circuit Breaker Tripped",
		Message: fmt.Sprintf("Trading halted: %s", reason),
		Details: map[string]string{
			"Reason":     reason,
			"Daily Loss": formatCents(dailyLossCents),
			"Exposure":   formatCents(exposureCents),
		},
	})
}

// ConnectionIssue notifies that a streaming or REST connection degraded.
func (m *Manager) ConnectionIssue(ctx context.Context, component, errMessage string) {
	m.Send(ctx, Alert{
		Level:   LevelWarning,
		Title:   "Connection Issue",
		Message: fmt.Sprintf("%s connection problem", component),
		Details: map[string]string{
			"Component": component,
			"Error":     errMessage,
		},
	})
}

// LargeLoss notifies that a single market produced an outsized loss.
func (m *Manager) LargeLoss(ctx context.Context, lossCents int, market string) {
	m.Send(ctx, Alert{
		Level:   LevelError,
		Title:   "Large Loss Detected",
		Message: fmt.Sprintf("Significant loss on %s", market),
		Details: map[string]string{
			"Loss":   formatCents(lossCents),
			"Market": market,
		},
	})
}

func formatCents(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100.0)
}
