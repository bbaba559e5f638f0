package notifier

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"pricewatch/internal/config"
	"pricewatch/internal/models"
)

// EmailSender delivers price-drop alerts over SMTP. It backs the
// notification service that the pipeline's Client posts to.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(cfg config.SMTP) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *EmailSender) Send(n models.Notification) error {
	const op = "notifier.EmailSender.Send"

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.UserEmail)
	m.SetHeader("Subject", fmt.Sprintf("Price drop: %s is now R$ %s", n.ProductName, n.CurrentPrice.StringFixed(2)))
	m.SetBody("text/html", emailBody(n))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func emailBody(n models.Notification) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p>
<p><b>%s</b> dropped to <b>R$ %s</b> on %s, below your target of R$ %s.</p>
<p><a href="%s">Open the product page</a></p>`,
		n.UserName,
		n.ProductName,
		n.CurrentPrice.StringFixed(2),
		n.Store,
		n.DesiredPrice.StringFixed(2),
		n.ProductURL,
	)
}
