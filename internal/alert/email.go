package alert

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"scanguard/internal/config"
	"scanguard/internal/model"
)

// EmailNotifier mails a plain-text summary of each alert to the configured
// recipients over SMTP with STARTTLS.
type EmailNotifier struct {
	enabled  bool
	addr     string
	username string
	password string
	from     string
	to       []string
	logger   *logrus.Logger

	// sendMail is swapped out in tests.
	sendMail func(addr string, a sasl.Client, from string, to []string, r *strings.Reader) error
}

func NewEmailNotifier(cfg config.EmailConfig, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		enabled:  cfg.Enabled,
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		logger:   logger,
		sendMail: func(addr string, a sasl.Client, from string, to []string, r *strings.Reader) error {
			return smtp.SendMail(addr, a, from, to, r)
		},
	}
}

func (en *EmailNotifier) SendAlert(alert *model.Alert) error {
	if !en.enabled {
		en.logger.Debug("email notifier is disabled, skipping alert")
		return nil
	}

	var auth sasl.Client
	if en.username != "" {
		auth = sasl.NewPlainClient("", en.username, en.password)
	}

	msg := formatEmail(en.from, en.to, alert)
	if err := en.sendMail(en.addr, auth, en.from, en.to, strings.NewReader(msg)); err != nil {
		return fmt.Errorf("failed to send alert email via %s: %v", en.addr, err)
	}

	en.logger.Infof("alert email sent to %s", strings.Join(en.to, ", "))
	return nil
}

func formatEmail(from string, to []string, alert *model.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: [scanguard] %s from %s\r\n", alert.ScanType, alert.SourceIP)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "%s detected\r\n\r\n", alert.ScanType)
	fmt.Fprintf(&b, "Source IP:    %s\r\n", alert.SourceIP)
	fmt.Fprintf(&b, "Time:         %s\r\n", alert.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Unique ports: %d\r\n", len(alert.Ports))

	ports := make([]string, 0, len(alert.Ports))
	for _, p := range alert.Ports {
		ports = append(ports, strconv.Itoa(p))
	}
	fmt.Fprintf(&b, "Ports:        %s\r\n", strings.Join(ports, ", "))

	return b.String()
}
