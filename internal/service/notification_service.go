package service

import (
	"fmt"
	"strings"
	"time"

	"counsel/internal/domain"
	"counsel/pkg/mailer"

	"github.com/shopspring/decimal"
)

// NotificationService renders and sends the five billing emails. Every send is
// best-effort from the caller's point of view: a failure is returned so the
// caller can log it, but nothing here aborts sibling notifications.
type NotificationService struct {
	mailer      mailer.Mailer
	lawyerEmail string
}

func NewNotificationService(m mailer.Mailer, lawyerEmail string) *NotificationService {
	return &NotificationService{mailer: m, lawyerEmail: lawyerEmail}
}

// InvoiceNumber derives a deterministic invoice number from the invoice date
// and the tail of the payment identifier: INV-YYYYMMDD-XXXXXX.
func InvoiceNumber(now time.Time, paymentID string) string {
	tail := paymentID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(tail))
}

func (s *NotificationService) SendPaymentConfirmation(to, clientName string, amount decimal.Decimal, summary string) error {
	body := fmt.Sprintf(`<h2>Payment received</h2>
<p>Dear %s,</p>
<p>We have received your payment of <strong>$%s</strong> for: %s.</p>
<p>A lawyer will review your consultation and get back to you shortly.</p>`,
		displayName(clientName), amount.StringFixed(2), summary)
	return s.mailer.Send(to, "Payment confirmation", body)
}

// SendLawyerNotification goes to the configured internal address; when none is
// configured the notice is skipped rather than failed.
func (s *NotificationService) SendLawyerNotification(clientName, category, summary string, amount decimal.Decimal) error {
	if s.lawyerEmail == "" {
		return nil
	}
	body := fmt.Sprintf(`<h2>New paid consultation</h2>
<p><strong>Client:</strong> %s</p>
<p><strong>Category:</strong> %s</p>
<p><strong>Amount:</strong> $%s</p>
<p><strong>Summary:</strong></p>
<p>%s</p>`,
		displayName(clientName), category, amount.StringFixed(2), summary)
	return s.mailer.Send(s.lawyerEmail, "New paid consultation", body)
}

func (s *NotificationService) SendInvoice(to, clientName, invoiceNumber string, base decimal.Decimal) error {
	tax := base.Mul(domain.TaxRate).Round(2)
	total := base.Add(tax)
	body := fmt.Sprintf(`<h2>Invoice %s</h2>
<p>Dear %s,</p>
<table>
<tr><td>Consultation fee</td><td>$%s</td></tr>
<tr><td>VAT (21%%)</td><td>$%s</td></tr>
<tr><td><strong>Total</strong></td><td><strong>$%s</strong></td></tr>
</table>
<p>Thank you for your business.</p>`,
		invoiceNumber, displayName(clientName), base.StringFixed(2), tax.StringFixed(2), total.StringFixed(2))
	return s.mailer.Send(to, "Invoice "+invoiceNumber, body)
}

func (s *NotificationService) SendPaymentFailed(to, clientName, reason string) error {
	if reason == "" {
		reason = "your payment could not be processed"
	}
	body := fmt.Sprintf(`<h2>Payment failed</h2>
<p>Dear %s,</p>
<p>Unfortunately %s.</p>
<p>No charge was made. Please try again or use a different payment method.</p>`,
		displayName(clientName), reason)
	return s.mailer.Send(to, "Payment failed", body)
}

func (s *NotificationService) SendRefundConfirmation(to, clientName string, amount decimal.Decimal) error {
	body := fmt.Sprintf(`<h2>Refund processed</h2>
<p>Dear %s,</p>
<p>Your refund of <strong>$%s</strong> has been processed. Depending on your
bank it can take 5-10 business days to appear on your statement.</p>`,
		displayName(clientName), amount.StringFixed(2))
	return s.mailer.Send(to, "Refund confirmation", body)
}

func displayName(name string) string {
	if name == "" {
		return "client"
	}
	return name
}
