// Package discord posts ingest run notifications to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	colorRed    = 15158332 // 0xE74C3C
	colorOrange = 15105570 // 0xE67E22
	colorGreen  = 5763719  // 0x57F287

	defaultWebhookTimeout = 10 * time.Second
	maxRetries            = 3
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// RunReport is what a notification says about one ingest run.
type RunReport struct {
	RunID            string
	Source           string // "riot-id Player#NA1", "replay ./archive", ...
	Processed        int
	Skipped          int
	Failed           int
	TimelinesMissing int
	Elapsed          time.Duration
	FinishedAt       time.Time
	// KeyRejected is set when the Riot API refused the configured key.
	KeyRejected bool
}

// NewRunPayload renders a run report. Failed runs are orange, runs that hit a
// rejected key are red and mention @here.
func NewRunPayload(r RunReport) WebhookPayload {
	embed := Embed{
		Title:       "Ingest finished",
		Description: r.Source,
		Color:       colorGreen,
		Fields: []EmbedField{
			{Name: "Processed", Value: formatNumber(r.Processed), Inline: true},
			{Name: "Skipped", Value: formatNumber(r.Skipped), Inline: true},
			{Name: "Failed", Value: formatNumber(r.Failed), Inline: true},
			{Name: "No timeline", Value: formatNumber(r.TimelinesMissing), Inline: true},
			{Name: "Runtime", Value: formatDuration(r.Elapsed), Inline: true},
		},
	}
	if r.RunID != "" {
		embed.Footer = &EmbedFooter{Text: "run " + r.RunID}
	}
	if !r.FinishedAt.IsZero() {
		embed.Timestamp = r.FinishedAt.UTC().Format(time.RFC3339)
	}

	payload := WebhookPayload{}
	switch {
	case r.KeyRejected:
		payload.Content = "@here Riot API key rejected"
		embed.Title = "API key rejected"
		embed.Color = colorRed
		embed.Footer = &EmbedFooter{Text: "Set a fresh RIOT_API_KEY and re-run; scanned matches are skipped"}
	case r.Failed > 0:
		embed.Title = "Ingest finished with failures"
		embed.Color = colorOrange
	}
	payload.Embeds = []Embed{embed}
	return payload
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// NotifyRun posts a run report.
func (c *WebhookClient) NotifyRun(ctx context.Context, r RunReport) error {
	return c.sendPayload(ctx, NewRunPayload(r))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := time.Second
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				wait = time.Duration(seconds) * time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xh Ym", or "Xm Ys" under an hour.
func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
