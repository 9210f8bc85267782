package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func GetEmailConfig() *EmailConfig {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	return &EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// Configured reports whether enough SMTP settings are present to send mail.
func (c *EmailConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

func SendEmail(to, subject, htmlBody string) error {
	config := GetEmailConfig()
	if !config.Configured() {
		return fmt.Errorf("SMTP not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	return d.DialAndSend(m)
}

func firstName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "there"
	}
	return strings.Fields(name)[0]
}

// TimeOffDecisionEmail builds the subject and body sent when a time-off request is decided.
func TimeOffDecisionEmail(name, status, startDate, endDate string, notes *string) (string, string) {
	decision := strings.ToLower(status)
	subject := fmt.Sprintf("Time-off request %s - SafeMeds", decision)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Time-off request %s</h2>\n", decision)
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n", firstName(name))
	fmt.Fprintf(&b, "<p>Your time-off request for <strong>%s</strong> to <strong>%s</strong> has been <strong>%s</strong>.</p>\n",
		startDate, endDate, decision)
	if notes != nil && *notes != "" {
		fmt.Fprintf(&b, "<p>Notes from your manager: %s</p>\n", *notes)
	}
	b.WriteString("<p>The SafeMeds Pharmacy Team</p>")
	return subject, b.String()
}

// SendTimeOffDecision mails the staff member in the background.
// Nothing is sent when SMTP is not configured.
func SendTimeOffDecision(email, name, status, startDate, endDate string, notes *string) {
	if email == "" || !GetEmailConfig().Configured() {
		return
	}
	subject, body := TimeOffDecisionEmail(name, status, startDate, endDate, notes)
	go func() {
		if err := SendEmail(email, subject, body); err != nil {
			LogError(err, "Failed to send time-off decision email", map[string]interface{}{"email": email})
		}
	}()
}
