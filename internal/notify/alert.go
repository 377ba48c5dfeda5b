package notify

import (
	"log"
	"os/exec"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Alerter delivers operator alerts (cascade exhausted, sweep anomalies).
// All delivery is best-effort: failures are logged, never returned, so an
// alerting outage can't fail a cascade operation.
type Alerter struct {
	client  slackClient
	channel string
	command string
}

// NewAlerter builds an Alerter from config. With no Slack token and no
// command configured, alerts only go to the process log.
func NewAlerter(cfg config.AlertsConfig) *Alerter {
	a := &Alerter{channel: cfg.SlackChannel, command: cfg.Command}
	if cfg.SlackToken != "" {
		a.client = slackapi.New(cfg.SlackToken)
	}
	return a
}

// newAlerterWithClient injects a mock Slack client for tests.
func newAlerterWithClient(client slackClient, channel, command string) *Alerter {
	return &Alerter{client: client, channel: channel, command: command}
}

// Alert posts an operator alert to every configured channel.
func (a *Alerter) Alert(subject, body string) {
	log.Printf("alert: %s: %s", subject, body)

	if a == nil {
		return
	}
	if a.client != nil && a.channel != "" {
		text := subject
		if body != "" {
			text += "\n" + body
		}
		if _, _, err := a.client.PostMessage(a.channel, slackapi.MsgOptionText(text, false)); err != nil {
			log.Printf("alert: slack post failed: %v", err)
		}
	}
	if a.command != "" {
		cmdStr := templateAlert(a.command, subject, body)
		cmd := exec.Command("sh", "-c", cmdStr)
		if out, err := cmd.CombinedOutput(); err != nil {
			log.Printf("alert: command failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
	}
}

// templateAlert replaces placeholders in the command template.
func templateAlert(command, subject, body string) string {
	r := strings.NewReplacer(
		"{{.Subject}}", subject,
		"{{.Body}}", body,
	)
	return r.Replace(command)
}
