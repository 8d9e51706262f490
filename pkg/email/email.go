// Package email sends the site's transactional mail through Resend.
//
// Services depend on the Sender interface. NewResendSender is wired in main
// when email is configured; NopSender is used otherwise.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/pkg/i18n"
)

// OrderMail carries what the order emails show. Amount is pre-formatted.
type OrderMail struct {
	To           string
	BuyerName    string
	Reference    string
	ArtworkTitle string
	Amount       string
	ExpiresAt    string
	AdminURL     string
	Locale       string
}

// ContactMail is a message left through the contact form.
type ContactMail struct {
	FromName  string
	FromEmail string
	Message   string
}

// Sender sends transactional email.
type Sender interface {
	// SendPasswordReset mails resetLink to toEmail.
	SendPasswordReset(ctx context.Context, toEmail, resetLink, locale string) error
	// SendOrderConfirmation tells the buyer their artwork is reserved.
	SendOrderConfirmation(ctx context.Context, m OrderMail) error
	// SendOrderNotification tells the artist a new order came in.
	SendOrderNotification(ctx context.Context, m OrderMail) error
	// SendContactMessage forwards a contact form message to the artist.
	SendContactMessage(ctx context.Context, m ContactMail) error
}

type resendSender struct {
	client      *resend.Client
	fromEmail   string
	siteName    string
	artistInbox string
}

// NewResendSender creates a Sender backed by the Resend API.
// fromEmail must belong to a domain verified in Resend.
func NewResendSender(apiKey, fromEmail, siteName, artistInbox string) Sender {
	return &resendSender{
		client:      resend.NewClient(apiKey),
		fromEmail:   fromEmail,
		siteName:    siteName,
		artistInbox: artistInbox,
	}
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;background-color:#f6f3ee;font-family:Georgia,serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr><td align="center">
      <table width="520" cellpadding="0" cellspacing="0" style="background-color:#ffffff;padding:40px;">
        <tr><td>
          <h1 style="color:#222;font-size:22px;margin:0 0 24px 0;">{{.Site}}</h1>
          <h2 style="color:#222;font-size:17px;margin:0 0 16px 0;">{{.Heading}}</h2>
          {{range .Paragraphs}}<p style="color:#444;font-size:15px;line-height:1.6;margin:0 0 16px 0;white-space:pre-wrap;">{{.}}</p>{{end}}
          {{if .Link}}<p style="margin:24px 0;"><a href="{{.Link}}" style="background-color:#222;color:#fff;padding:12px 28px;text-decoration:none;">{{.LinkText}}</a></p>
          <p style="color:#888;font-size:12px;word-break:break-all;">{{.Link}}</p>{{end}}
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

type layoutData struct {
	Site       string
	Heading    string
	Paragraphs []string
	Link       string
	LinkText   string
}

func renderHTML(d layoutData) (string, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}

func (s *resendSender) send(ctx context.Context, to, subject, replyTo string, d layoutData) error {
	d.Site = s.siteName
	html, err := renderHTML(d)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.siteName, s.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
		ReplyTo: replyTo,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email %q: %w", subject, err)
	}
	return nil
}

func (s *resendSender) SendPasswordReset(ctx context.Context, toEmail, resetLink, locale string) error {
	loc := i18n.NewLocalizer(locale)
	return s.send(ctx, toEmail, loc.T("email.reset_subject"), "", layoutData{
		Heading:    loc.T("email.reset_subject"),
		Paragraphs: []string{loc.T("email.reset_body")},
		Link:       resetLink,
		LinkText:   loc.T("email.reset_subject"),
	})
}

func (s *resendSender) SendOrderConfirmation(ctx context.Context, m OrderMail) error {
	loc := i18n.NewLocalizer(m.Locale)
	subject := loc.TWithParams("email.order_subject", map[string]string{"reference": m.Reference})
	body := loc.TWithParams("email.order_body", map[string]string{
		"name":    m.BuyerName,
		"title":   m.ArtworkTitle,
		"expires": m.ExpiresAt,
	})
	return s.send(ctx, m.To, subject, s.artistInbox, layoutData{
		Heading:    subject,
		Paragraphs: []string{body, m.Amount},
	})
}

func (s *resendSender) SendOrderNotification(ctx context.Context, m OrderMail) error {
	subject := fmt.Sprintf("New order %s: %s", m.Reference, m.ArtworkTitle)
	return s.send(ctx, s.artistInbox, subject, m.To, layoutData{
		Heading: subject,
		Paragraphs: []string{
			fmt.Sprintf("%s <%s> reserved \"%s\" for %s.", m.BuyerName, m.To, m.ArtworkTitle, m.Amount),
			fmt.Sprintf("The reservation expires %s.", m.ExpiresAt),
		},
		Link:     m.AdminURL,
		LinkText: "Open the dashboard",
	})
}

func (s *resendSender) SendContactMessage(ctx context.Context, m ContactMail) error {
	subject := fmt.Sprintf("Message from %s", m.FromName)
	return s.send(ctx, s.artistInbox, subject, m.FromEmail, layoutData{
		Heading:    subject,
		Paragraphs: []string{m.Message, fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail)},
	})
}

// NopSender logs instead of sending. Used when email is not configured.
type NopSender struct{}

func (NopSender) SendPasswordReset(_ context.Context, toEmail, resetLink, _ string) error {
	zap.L().Named("email").Info("email disabled, password reset not sent",
		zap.String("to", toEmail), zap.String("link", resetLink))
	return nil
}

func (NopSender) SendOrderConfirmation(_ context.Context, m OrderMail) error {
	zap.L().Named("email").Info("email disabled, order confirmation not sent", zap.String("reference", m.Reference))
	return nil
}

func (NopSender) SendOrderNotification(_ context.Context, m OrderMail) error {
	zap.L().Named("email").Info("email disabled, order notification not sent", zap.String("reference", m.Reference))
	return nil
}

func (NopSender) SendContactMessage(_ context.Context, m ContactMail) error {
	zap.L().Named("email").Info("email disabled, contact message not forwarded", zap.String("from", m.FromEmail))
	return nil
}
