package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/models"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorRed    = 16711680 // #FF0000 - critical
	ColorOrange = 16753920 // #FFA500 - high

	Username = "FleetPulse"
)

func discordColor(severity string) int {
	if severity == alerts.SeverityCritical {
		return ColorRed
	}

	return ColorOrange
}

func slackColor(severity string) string {
	if severity == alerts.SeverityCritical {
		return "danger"
	}

	return "warning"
}

func sendDiscordAlert(client *http.Client, webhookURL string, alert models.Alert, carName string) error {
	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       "🚨 **VEHICLE ALERT**",
				Description: fmt.Sprintf("**%s** reported **%s**.", carName, alert.AlertType),
				Color:       discordColor(alert.Severity),
				Fields: []DiscordWebhookField{
					{Name: "🚗 Vehicle", Value: carName, Inline: true},
					{Name: "🏷️ Type", Value: alert.AlertType, Inline: true},
					{Name: "⚠️ Severity", Value: "**" + alert.Severity + "**", Inline: true},
					{Name: "🎯 Confidence", Value: fmt.Sprintf("%.2f", alert.ConfidenceScore), Inline: true},
					{Name: "⏰ Detected At", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC"), Inline: true},
				},
				Footer: &DiscordFooter{
					Text: "FleetPulse Fleet Monitoring",
				},
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
	}

	return sendWebhook(client, webhookURL, payload)
}

func sendSlackAlert(client *http.Client, webhookURL string, alert models.Alert, carName string) error {
	payload := SlackWebhookRequest{
		Username:  Username,
		IconEmoji: ":rotating_light:",
		Text:      ":rotating_light: *VEHICLE ALERT*",
		Attachments: []SlackAttachment{
			{
				Color: slackColor(alert.Severity),
				Title: fmt.Sprintf("Vehicle '%s' reported %s", carName, alert.AlertType),
				Text:  alert.Description,
				Fields: []SlackField{
					{Title: "Vehicle", Value: carName, Short: true},
					{Title: "Type", Value: alert.AlertType, Short: true},
					{Title: "Severity", Value: alert.Severity, Short: true},
					{Title: "Confidence", Value: fmt.Sprintf("%.2f", alert.ConfidenceScore), Short: true},
				},
				Footer:    "FleetPulse Fleet Monitoring",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return sendWebhook(client, webhookURL, payload)
}

func sendWebhook(client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)

	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
