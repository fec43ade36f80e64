package notify

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"storefront/config"
	"storefront/models"

	"github.com/shopspring/decimal"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ComposeOrderConfirmation renders the plain-text confirmation for a paid order.
func ComposeOrderConfirmation(order models.Order, items []models.OrderItem) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", order.Customer.FirstName)
	fmt.Fprintf(&b, "Thank you for your order %s. Payment has been received.\n\n", order.OrderID)
	for _, it := range items {
		fmt.Fprintf(&b, "  %s x%d  %s UAH\n", it.Name, it.Quantity, money(it.Subtotal))
	}
	fmt.Fprintf(&b, "\nTotal: %s UAH\n", money(order.TotalAmount))
	fmt.Fprintf(&b, "Delivery: %s, %s\n", order.Delivery.City, order.Delivery.Warehouse)
	return Message{
		To:      order.Customer.Email,
		Subject: "Order " + order.OrderID + " confirmed",
		Body:    b.String(),
	}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// SMTPMailer sends through a relay with PLAIN auth. With no host configured
// it only logs the message.
type SMTPMailer struct {
	cfg  config.SMTP
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" {
		log.Printf("[notify] mail to %s: %s", msg.To, msg.Subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rcpt, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", msg.To, err)
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{rcpt.Address}, render(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func render(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
