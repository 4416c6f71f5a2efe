package services

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"precisionworks/internal/config"
	"precisionworks/internal/domain"
)

// EmailService handles sending emails
type EmailService struct {
	cfg      *config.EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg, sendMail: smtp.SendMail}
}

// SendContactNotification tells staff at to about a new contact request
func (s *EmailService) SendContactNotification(to string, req *domain.ContactRequest) error {
	subject := fmt.Sprintf("New %s from %s (%s)", requestTypeLabel(req.RequestType), req.Name, req.Company)

	phone := "Not provided"
	if req.Phone != nil && *req.Phone != "" {
		phone = *req.Phone
	}
	deadline := "None"
	if req.Deadline != nil {
		deadline = req.Deadline.Format("January 2, 2006")
	}
	products := make([]string, len(req.ProductInterest))
	for i, tag := range req.ProductInterest {
		products[i] = productLabel(tag)
	}
	submitted := req.CreatedAt.Format("January 2, 2006 at 3:04 PM")

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>New Contact Request</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #334155;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1C5D99;">New Contact Request #%d</h2>

        <div style="background: #F8FAFC; padding: 20px; border-radius: 8px; margin: 20px 0;">
            <p><strong>Name:</strong> %s</p>
            <p><strong>Company:</strong> %s</p>
            <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
            <p><strong>Phone:</strong> %s</p>
            <p><strong>Products:</strong> %s</p>
            <p><strong>Deadline:</strong> %s</p>
            <p><strong>Submitted:</strong> %s</p>
        </div>

        <div style="background: #FFFFFF; padding: 20px; border-left: 4px solid #1C5D99; border-radius: 4px; margin: 20px 0;">
            <h3 style="color: #0D1A2D; margin-top: 0;">Message:</h3>
            <p style="white-space: pre-wrap;">%s</p>
        </div>
    </div>
</body>
</html>`,
		req.ID,
		html.EscapeString(req.Name),
		html.EscapeString(req.Company),
		html.EscapeString(req.Email), html.EscapeString(req.Email),
		html.EscapeString(phone),
		html.EscapeString(strings.Join(products, ", ")),
		deadline,
		submitted,
		html.EscapeString(req.Message),
	)

	textBody := fmt.Sprintf(`New Contact Request #%d

Name: %s
Company: %s
Email: %s
Phone: %s
Products: %s
Deadline: %s
Submitted: %s

Message:
%s`, req.ID, req.Name, req.Company, req.Email, phone, strings.Join(products, ", "), deadline, submitted, req.Message)

	return s.SendHTMLEmail(to, subject, htmlBody, textBody)
}

func requestTypeLabel(t domain.RequestType) string {
	for _, o := range domain.RequestTypes {
		if o.ID == string(t) {
			return o.Label
		}
	}
	return string(t)
}

func productLabel(tag string) string {
	for _, o := range domain.ProductCatalog {
		if o.ID == tag {
			return o.Label
		}
	}
	return tag
}

// SendEmail sends a generic email (plain text)
func (s *EmailService) SendEmail(to, subject, body string) error {
	return s.SendHTMLEmail(to, subject, "", body)
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailService) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		log.Printf("[EMAIL] Would send to %s: %s", to, subject)
		return nil
	}

	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}
	if to == "" {
		return fmt.Errorf("no recipient")
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)

	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	boundary := "----=_Part_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(textBody + "\r\n")

	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(htmlBody + "\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.sendMail(addr, auth, s.cfg.FromEmail, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// IsEnabled returns whether email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.cfg.Enabled
}
