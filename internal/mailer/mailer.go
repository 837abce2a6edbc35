// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings, usually read from the environment.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ConfigFromEnv reads SMTP_* environment variables. An empty host means
// mailing is disabled and New returns nil.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// Mailer delivers approval notifications via SMTP.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// New builds a Mailer, or nil when no SMTP host is configured.
func New(cfg Config) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NotifyApproval emails the requester that their parking slot was assigned.
func (m *Mailer) NotifyApproval(ctx context.Context, recipient, slotNumber, plateNumber string, approvedAt time.Time) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "Parking slot request approved")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Your parking slot request has been approved.</p>"+
			"<p><b>Slot:</b> %s<br><b>Vehicle:</b> %s<br><b>Approved at:</b> %s</p>",
		slotNumber, plateNumber, approvedAt.Format("2006-01-02 15:04"),
	))

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send approval email to %s: %w", recipient, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
