package mail

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type AlertSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

func NewAlertSender(host string, port int, user, password, from, to string) *AlertSender {
	return &AlertSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// SendDeadLetterAlert mails the ops inbox when an item is permanently
// parked. Dead-lettered conversions need a human; nothing retries them.
func (s *AlertSender) SendDeadLetterAlert(item *entity.QueueItem, conversion *entity.Conversion) error {
	var body strings.Builder
	fmt.Fprintf(&body, "Queue item %s was moved to dead letter after %d attempts.\n\n", item.ID, item.RetryCount)
	fmt.Fprintf(&body, "Platform: %s\n", item.Platform)
	fmt.Fprintf(&body, "Conversion: %s\n", item.ConversionID)
	if conversion != nil {
		fmt.Fprintf(&body, "CRM deal: %s (%s)\n", conversion.CRMDealID, conversion.ConversionType)
	} else {
		body.WriteString("CRM deal: conversion record missing\n")
	}
	fmt.Fprintf(&body, "Last error: %s\n", item.LastError)
	body.WriteString("\nInspect the conversion_queue row and re-admit manually if appropriate.\n")

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("[attribution] Dead letter: conversion %s", item.ConversionID))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
