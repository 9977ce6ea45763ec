package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"battrack/internal/config"
	"battrack/internal/faults"
)

// Mailer sends shipment notices over SMTP with implicit TLS.
type Mailer struct {
	cfg    config.Notify
	logger *slog.Logger

	// send is replaced in tests.
	send func(addr string, msg []byte) error
}

func NewMailer(cfg config.Notify, logger *slog.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logger: logger}
	m.send = m.sendTLS
	return m
}

func (m *Mailer) ShipmentNotice(ctx context.Context, shipment Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))
	msg := m.compose(shipment)
	if err := m.send(addr, msg); err != nil {
		return faults.Wrap(faults.ErrTransient, "notify", "shipment_notice", "send mail", err)
	}
	m.logger.Info("shipment notice sent",
		"shipped", len(shipment.Shipped), "returned", len(shipment.Returned),
		"recipients", len(m.cfg.Recipients))
	return nil
}

func (m *Mailer) sendTLS(addr string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.SMTPHost})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if m.cfg.SMTPUsername != "" {
		auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range m.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

const mimeBoundary = "battrack-notice"

func (m *Mailer) compose(shipment Shipment) []byte {
	var b strings.Builder
	date := shipment.Timestamp.Format("02/01/2006 15:04")
	subject := fmt.Sprintf("Expedition %s: %d unit(s) shipped",
		shipment.Timestamp.Format("02/01/2006"), len(shipment.Shipped))

	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.cfg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "Expedition finalized on %s\r\n\r\n", date)
	writeList(&b, "Shipped units", shipment.Shipped)
	writeList(&b, "Service returns sent back", shipment.Returned)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "<h2>Expedition finalized on %s</h2>\r\n", date)
	writeHTMLList(&b, "Shipped units", shipment.Shipped)
	writeHTMLList(&b, "Service returns sent back", shipment.Returned)
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	return []byte(b.String())
}

func writeList(b *strings.Builder, title string, serials []string) {
	if len(serials) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\r\n", title, len(serials))
	for _, serial := range serials {
		fmt.Fprintf(b, "  - %s\r\n", serial)
	}
	b.WriteString("\r\n")
}

func writeHTMLList(b *strings.Builder, title string, serials []string) {
	if len(serials) == 0 {
		return
	}
	fmt.Fprintf(b, "<h3>%s (%d)</h3>\r\n<ul>\r\n", title, len(serials))
	for _, serial := range serials {
		fmt.Fprintf(b, "<li>%s</li>\r\n", serial)
	}
	b.WriteString("</ul>\r\n")
}

// FromConfig returns the mailer when notification is enabled, a Noop
// otherwise.
func FromConfig(cfg config.Notify, logger *slog.Logger) Service {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewMailer(cfg, logger)
}
