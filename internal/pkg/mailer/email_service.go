package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendBookingNotice(toEmail, subject, message string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	restaurant  string
}

func NewEmailService(host string, port int, username, password, senderEmail, restaurant string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		restaurant:  restaurant,
	}
}

// SendBookingNotice mails a copy of an inbox notification to the guest.
func (s *emailService) SendBookingNotice(toEmail, subject, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s: %s", s.restaurant, subject))
	m.SetBody("text/html", RenderNotice(s.restaurant, subject, message))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send booking notice to %s: %w", toEmail, err)
	}
	return nil
}

func RenderNotice(restaurant, subject, message string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>%s</p>
			<p style="color: #888;">%s</p>
		</div>
	`, html.EscapeString(subject), html.EscapeString(message), html.EscapeString(restaurant))
}
