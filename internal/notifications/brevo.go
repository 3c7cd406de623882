package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type BrevoClient struct {
	apiKey      string
	senderEmail string
	senderName  string
	sandbox     bool
	endpoint    string
	httpClient  *http.Client
}

func NewBrevoClient(apiKey, senderEmail, senderName string, sandbox bool) *BrevoClient {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(senderEmail) == "" {
		return nil
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = senderEmail
	}
	return &BrevoClient{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		sandbox:     sandbox,
		endpoint:    defaultBrevoEndpoint,
		httpClient:  &http.Client{Timeout: 8 * time.Second},
	}
}

var ErrMailerDisabled = errors.New("brevo client is nil")

// outboundEmail is one transactional message before it is shaped for Brevo.
type outboundEmail struct {
	To      Recipient
	Subject string
	HTML    string
	Text    string
	Tag     string
}

func (c *BrevoClient) SendNotificationEmail(ctx context.Context, to Recipient, n Notification) (string, error) {
	if c == nil {
		return "", ErrMailerDisabled
	}
	html, err := buildNotificationHTML(to, n)
	if err != nil {
		return "", err
	}
	tag := "notification"
	if n.Type != "" {
		tag += "-" + n.Type
	}
	return c.send(ctx, outboundEmail{
		To:      to,
		Subject: n.Title,
		HTML:    html,
		Text:    n.Message,
		Tag:     tag,
	})
}

func (c *BrevoClient) SendPasswordResetCode(ctx context.Context, to Recipient, code string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", ErrMailerDisabled
	}
	html, err := buildPasswordResetHTML(to, code, ttl)
	if err != nil {
		return "", err
	}
	return c.send(ctx, outboundEmail{
		To:      to,
		Subject: "Your password reset code",
		HTML:    html,
		Text:    fmt.Sprintf("Your AyudaBesh verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes())),
		Tag:     "password-reset",
	})
}

func (m outboundEmail) validate() error {
	switch {
	case strings.TrimSpace(m.To.Email) == "":
		return errors.New("missing recipient email")
	case strings.TrimSpace(m.Subject) == "":
		return errors.New("missing subject")
	case strings.TrimSpace(m.HTML) == "":
		return errors.New("missing html body")
	}
	return nil
}

func (c *BrevoClient) payload(m outboundEmail) brevoSendRequest {
	req := brevoSendRequest{
		Sender:      brevoSender{Name: c.senderName, Email: c.senderEmail},
		To:          []brevoRecipient{{Email: m.To.Email, Name: m.To.Name}},
		Subject:     m.Subject,
		HtmlContent: m.HTML,
		TextContent: m.Text,
	}
	if m.Tag != "" {
		req.Tags = []string{m.Tag}
	}
	if c.sandbox {
		req.Headers = map[string]string{"X-Sib-Sandbox": "drop"}
	}
	return req
}

func (c *BrevoClient) send(ctx context.Context, m outboundEmail) (string, error) {
	if c == nil {
		return "", ErrMailerDisabled
	}
	if err := m.validate(); err != nil {
		return "", err
	}

	raw, err := json.Marshal(c.payload(m))
	if err != nil {
		return "", fmt.Errorf("brevo marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("brevo create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("brevo send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out brevoSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("brevo decode response: %w", err)
	}
	if strings.TrimSpace(out.MessageID) == "" {
		return "", errors.New("brevo response missing messageId")
	}
	return out.MessageID, nil
}

type brevoSendRequest struct {
	Sender      brevoSender       `json:"sender"`
	To          []brevoRecipient  `json:"to"`
	Subject     string            `json:"subject"`
	HtmlContent string            `json:"htmlContent,omitempty"`
	TextContent string            `json:"textContent,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type brevoSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendResponse struct {
	MessageID string `json:"messageId"`
}
