package notify

// mailer.go — sink de notificaciones por SMTP con adjunto CSV.
//
// Un fallo de envío se loguea y nunca es fatal ni se reintenta: la
// invocación del día siguiente es la frontera de retry del sistema.
// Sin password configurado, el mailer se salta el envío con un log.

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// MailConfig contiene la configuración SMTP.
type MailConfig struct {
	Host     string
	Port     int
	From     string
	To       string
	Password string
}

// Mailer implementa ports.Notifier enviando correos con el CSV adjunto.
type Mailer struct {
	cfg MailConfig
}

// NewMailer crea el mailer. Con password vacío queda en modo no-op.
func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// NotifyDay envía el correo diario con el export adjunto.
func (m *Mailer) NotifyDay(_ context.Context, day domain.DayResult) error {
	subject := fmt.Sprintf("Stock Prediction Results - Day %d (%s)",
		day.Run.DayNumber, day.Run.Date.Format(domain.DateLayout))

	var b strings.Builder
	fmt.Fprintf(&b, "Stock Prediction Experiment - Daily Update\n\n")
	fmt.Fprintf(&b, "Day: %d of %d\n", day.Run.DayNumber, day.MaxRuns)
	fmt.Fprintf(&b, "Date: %s\n\n", day.Run.Date.Format(domain.DateLayout))
	fmt.Fprintf(&b, "Predictions written: %d\n", day.Run.Processed)
	if day.Run.Skipped > 0 {
		fmt.Fprintf(&b, "Tickers skipped (no data): %s\n", strings.Join(day.SkippedTickers, ", "))
	}
	fmt.Fprintf(&b, "\nThe result file with today's predictions is attached.\n")

	return m.send(subject, b.String(), day.Attachment)
}

// NotifyFinal envía el informe final con el export completo adjunto.
func (m *Mailer) NotifyFinal(_ context.Context, report domain.FinalReport) error {
	s := report.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "Stock Prediction Experiment - FINAL RESULTS\n\n")
	fmt.Fprintf(&b, "Experiment Period: %s to %s\n",
		s.FirstDate.Format(domain.DateLayout), s.LastDate.Format(domain.DateLayout))
	fmt.Fprintf(&b, "Total Predictions: %d\n", s.TotalPredictions)
	fmt.Fprintf(&b, "Trading Days: %d\n\n", s.TradingDays)
	fmt.Fprintf(&b, "ACCURACY RESULTS:\n")
	for k, st := range s.ByVariant {
		fmt.Fprintf(&b, "%s: %d/%d = %.2f%%\n", variantName(k), st.Correct, st.Total, st.Accuracy)
	}
	fmt.Fprintf(&b, "\nExperiment complete. The full result export is attached.\n")

	return m.send("Stock Prediction Experiment - FINAL REPORT", b.String(), report.Attachment)
}

// send construye el mensaje MIME (multipart/mixed si hay adjunto) y lo
// entrega vía STARTTLS.
func (m *Mailer) send(subject, body, attachment string) error {
	if m.cfg.Password == "" {
		slog.Info("smtp password not set, skipping email", "subject", subject)
		return nil
	}

	msg, err := m.buildMessage(subject, body, attachment)
	if err != nil {
		return fmt.Errorf("notify.send: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("notify.send: %s: %w", addr, err)
	}

	slog.Info("email sent", "subject", subject, "to", m.cfg.To)
	return nil
}

// buildMessage arma las cabeceras y partes MIME del correo.
func (m *Mailer) buildMessage(subject, body, attachment string) ([]byte, error) {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)

	if attachment == "" {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(body)
		return []byte(msg.String()), nil
	}

	data, err := os.ReadFile(attachment)
	if err != nil {
		return nil, fmt.Errorf("read attachment %q: %w", attachment, err)
	}

	const boundary = "oraculo-mime-boundary"
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/csv; name=%q\r\n", filepath.Base(attachment))
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(attachment))
	msg.WriteString(encodeBase64Lines(data))
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return []byte(msg.String()), nil
}

// encodeBase64Lines codifica en base64 con saltos cada 76 caracteres
// (límite de línea de RFC 2045).
func encodeBase64Lines(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var sb strings.Builder
	for len(encoded) > 76 {
		sb.WriteString(encoded[:76])
		sb.WriteString("\r\n")
		encoded = encoded[76:]
	}
	sb.WriteString(encoded)
	return sb.String()
}
