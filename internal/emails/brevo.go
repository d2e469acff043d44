package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender delivers the membership lifecycle emails. A nil APIKey turns every
// send into a no-op, which is also the test configuration.
type Sender interface {
	SendInvite(ctx context.Context, toEmail, targetName, targetType, inviteLink string) error
	SendAccepted(ctx context.Context, toEmail, recipientName, targetName string) error
	SendRejected(ctx context.Context, toEmail, recipientName, targetName string) error
	SendRescinded(ctx context.Context, toEmail, targetName string) error
	SendRemoved(ctx context.Context, toEmail, targetName, targetType string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@agenthq.dev"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "AgentHQ"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendInvite sends the invitation email. Sent on every create and resend; a
// re-invite is idempotent at the storage layer but never silent.
func (c *BrevoClient) SendInvite(ctx context.Context, toEmail, targetName, targetType, inviteLink string) error {
	subject := fmt.Sprintf("You have been invited to join %s", targetName)
	return c.send(ctx, toEmail, subject, EmailLayout(invitationContent(targetName, targetType, inviteLink)))
}

// SendAccepted notifies the inviter that their invitation was accepted.
func (c *BrevoClient) SendAccepted(ctx context.Context, toEmail, recipientName, targetName string) error {
	subject := fmt.Sprintf("%s joined %s", recipientName, targetName)
	return c.send(ctx, toEmail, subject, EmailLayout(acceptedContent(recipientName, targetName)))
}

// SendRejected notifies the inviter that their invitation was declined.
func (c *BrevoClient) SendRejected(ctx context.Context, toEmail, recipientName, targetName string) error {
	subject := fmt.Sprintf("%s declined your invitation to %s", recipientName, targetName)
	return c.send(ctx, toEmail, subject, EmailLayout(rejectedContent(recipientName, targetName)))
}

// SendRescinded notifies the recipient that a pending invitation was withdrawn.
func (c *BrevoClient) SendRescinded(ctx context.Context, toEmail, targetName string) error {
	subject := fmt.Sprintf("Your invitation to %s was withdrawn", targetName)
	return c.send(ctx, toEmail, subject, EmailLayout(rescindedContent(targetName)))
}

// SendRemoved notifies an agent that their membership was revoked.
func (c *BrevoClient) SendRemoved(ctx context.Context, toEmail, targetName, targetType string) error {
	subject := fmt.Sprintf("You have been removed from %s", targetName)
	return c.send(ctx, toEmail, subject, EmailLayout(removedContent(targetName, targetType)))
}

func invitationContent(targetName, targetType, inviteLink string) string {
	return fmt.Sprintf(`
    <h1>You've Been Invited to Join %s</h1>
    <p>You have been invited to join the %s <strong>%s</strong> on AgentHQ.</p>
    <p>Click the button below to respond to the invitation:</p>
    <center>
      <a href="%s" class="hq-button">View Invitation</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      If you were not expecting this invitation, you can safely ignore this email.
    </p>
    <p>— The AgentHQ Team</p>
`, EscapeHTML(targetName), EscapeHTML(targetType), EscapeHTML(targetName), inviteLink)
}

func acceptedContent(recipientName, targetName string) string {
	return fmt.Sprintf(`
    <h1>Invitation Accepted</h1>
    <p><strong>%s</strong> accepted your invitation and is now a member of <strong>%s</strong>.</p>
    <p>— The AgentHQ Team</p>
`, EscapeHTML(recipientName), EscapeHTML(targetName))
}

func rejectedContent(recipientName, targetName string) string {
	return fmt.Sprintf(`
    <h1>Invitation Declined</h1>
    <p><strong>%s</strong> declined your invitation to join <strong>%s</strong>.</p>
    <p>— The AgentHQ Team</p>
`, EscapeHTML(recipientName), EscapeHTML(targetName))
}

func rescindedContent(targetName string) string {
	return fmt.Sprintf(`
    <h1>Invitation Withdrawn</h1>
    <p>Your invitation to join <strong>%s</strong> has been withdrawn. No action is needed.</p>
    <p>— The AgentHQ Team</p>
`, EscapeHTML(targetName))
}

func removedContent(targetName, targetType string) string {
	return fmt.Sprintf(`
    <h1>Membership Revoked</h1>
    <p>Your membership of the %s <strong>%s</strong> has been revoked by its leadership.</p>
    <p>If you believe this was a mistake, contact the %s leadership directly.</p>
    <p>— The AgentHQ Team</p>
`, EscapeHTML(targetType), EscapeHTML(targetName), EscapeHTML(targetType))
}
