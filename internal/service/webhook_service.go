package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"counsel/internal/domain"
	"counsel/internal/models"
	"counsel/internal/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

// WebhookService routes verified processor events to the reconciler. Events
// arrive at-least-once and in any order; every handler here must be safe to
// re-run and must never let a failure escape to the HTTP layer, since the
// webhook response stays 200 for anything past signature verification.
type WebhookService struct {
	payments PaymentStore
	users    UserStore
	notif    *NotificationService
}

func NewWebhookService(payments PaymentStore, users UserStore, notif *NotificationService) *WebhookService {
	return &WebhookService{payments: payments, users: users, notif: notif}
}

// HandleEvent dispatches by event type. Unknown types are acknowledged without
// side effects.
func (s *WebhookService) HandleEvent(ctx context.Context, event stripe.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Webhook] panic handling event %s (%s): %v", event.ID, event.Type, r)
		}
	}()

	switch event.Type {
	case domain.EventPaymentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("[Webhook] event %s: bad payment_intent payload: %v", event.ID, err)
			return
		}
		s.handlePaymentSucceeded(ctx, &pi)
	case domain.EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("[Webhook] event %s: bad payment_intent payload: %v", event.ID, err)
			return
		}
		s.handlePaymentFailed(ctx, &pi)
	case domain.EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			log.Printf("[Webhook] event %s: bad charge payload: %v", event.ID, err)
			return
		}
		s.handleChargeRefunded(ctx, &ch, event.Data.Raw)
	default:
		log.Printf("[Webhook] unhandled event type: %s", event.Type)
	}
}

// handlePaymentSucceeded materializes the ledger row for a succeeded intent and
// fires the confirmation mails. Redelivery is suppressed twice: a fast-path
// lookup, and the unique index on the intent reference for deliveries that race
// past the lookup.
func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) {
	userID, ok := ownerFromMetadata(pi.Metadata)
	if !ok {
		log.Printf("[Webhook] intent %s succeeded without userId metadata, skipping", pi.ID)
		return
	}

	if _, err := s.payments.GetByIntentRef(pi.ID); err == nil {
		log.Printf("[Webhook] duplicate payment_intent.succeeded for %s, ignoring", pi.ID)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[Webhook] ledger lookup for intent %s failed: %v", pi.ID, err)
		return
	}

	p := &models.Payment{
		ID:                    uuid.NewString(),
		UserID:                userID,
		StripePaymentIntentID: pi.ID,
		Amount:                fromMinorUnits(pi.Amount),
		Currency:              string(pi.Currency),
		Status:                domain.PaymentStatusCompleted,
		ConsultationSummary:   metaOrDefault(pi.Metadata, domain.MetaConsultationSummary, domain.DefaultConsultationSummary),
		Category:              metaOrDefault(pi.Metadata, domain.MetaCategory, domain.DefaultCategory),
	}
	if err := s.payments.Create(p); err != nil {
		if errors.Is(err, repository.ErrDuplicateIntent) {
			log.Printf("[Webhook] duplicate payment_intent.succeeded for %s, ignoring", pi.ID)
		} else {
			log.Printf("[Webhook] failed to record payment for intent %s: %v", pi.ID, err)
		}
		return
	}
	log.Printf("[Webhook] recorded payment %s for intent %s", p.ID, pi.ID)

	email, name := s.resolveRecipient(pi.ReceiptEmail, pi.Metadata[domain.MetaClientName], userID)
	if email == "" {
		return
	}

	// Each mail is isolated: one failing send must not stop the others, and
	// none of them can fail the webhook.
	if err := s.notif.SendPaymentConfirmation(email, name, p.Amount, p.ConsultationSummary); err != nil {
		log.Printf("[Webhook] confirmation email for payment %s failed: %v", p.ID, err)
	}
	if err := s.notif.SendLawyerNotification(name, p.Category, p.ConsultationSummary, p.Amount); err != nil {
		log.Printf("[Webhook] lawyer notification for payment %s failed: %v", p.ID, err)
	}
	invoiceNo := InvoiceNumber(time.Now(), p.ID)
	if err := s.notif.SendInvoice(email, name, invoiceNo, p.Amount); err != nil {
		log.Printf("[Webhook] invoice email %s for payment %s failed: %v", invoiceNo, p.ID, err)
	}
}

// handlePaymentFailed never touches the ledger: a failed authorization has no
// row in this design. It warns and sends one best-effort failure notice.
func (s *WebhookService) handlePaymentFailed(ctx context.Context, pi *stripe.PaymentIntent) {
	userID, ok := ownerFromMetadata(pi.Metadata)
	if !ok {
		log.Printf("[Webhook] intent %s failed without userId metadata, skipping", pi.ID)
		return
	}

	reason := ""
	if pi.LastPaymentError != nil {
		reason = pi.LastPaymentError.Msg
	}
	log.Printf("[Webhook] payment intent %s failed for user %d: %s", pi.ID, userID, reason)

	email, name := s.resolveRecipient(pi.ReceiptEmail, pi.Metadata[domain.MetaClientName], userID)
	if email == "" {
		return
	}
	if err := s.notif.SendPaymentFailed(email, name, reason); err != nil {
		log.Printf("[Webhook] failure email for intent %s failed: %v", pi.ID, err)
	}
}

// handleChargeRefunded is the processor-initiated refund path. Anything that
// goes wrong is logged with the charge id and swallowed so the processor still
// gets its 200.
func (s *WebhookService) handleChargeRefunded(ctx context.Context, ch *stripe.Charge, raw json.RawMessage) {
	// stripe-go decodes an expanded payment_intent object into the same field
	// as a plain reference, so the wire form has to be inspected: only an id
	// string is accepted, anything else is skipped rather than guessed at.
	ref, ok := chargeIntentRef(raw)
	if !ok {
		log.Printf("[Webhook] charge %s refunded without plain intent reference, skipping", ch.ID)
		return
	}

	p, err := s.payments.GetByIntentRef(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Webhook] charge %s refunded but no payment for intent %s", ch.ID, ref)
		} else {
			log.Printf("[Webhook] charge %s: ledger lookup failed: %v", ch.ID, err)
		}
		return
	}

	ok, err = s.payments.MarkRefunded(p.ID)
	if err != nil {
		log.Printf("[Webhook] charge %s: failed to mark payment %s refunded: %v", ch.ID, p.ID, err)
		return
	}
	if !ok {
		log.Printf("[Webhook] charge %s: payment %s already refunded", ch.ID, p.ID)
	}

	email, name := s.resolveRecipient(ch.ReceiptEmail, "", p.UserID)
	if email == "" {
		return
	}
	if err := s.notif.SendRefundConfirmation(email, name, p.Amount); err != nil {
		log.Printf("[Webhook] refund email for payment %s failed: %v", p.ID, err)
	}
}

// resolveRecipient picks the notification address: the intent's receipt email,
// then the owner's account email. An empty return means skip all notifications.
func (s *WebhookService) resolveRecipient(receiptEmail, metaName string, userID uint) (email, name string) {
	email = receiptEmail
	name = metaName
	if email == "" || name == "" {
		u, err := s.users.GetByID(userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[Webhook] user %d lookup failed: %v", userID, err)
			}
			return email, name
		}
		if email == "" {
			email = u.Email
		}
		if name == "" {
			name = u.Name
		}
	}
	return email, name
}

// chargeIntentRef pulls the payment_intent reference out of a raw charge
// payload. It reports false for an absent, null, or expanded-object field.
func chargeIntentRef(raw json.RawMessage) (string, bool) {
	var env struct {
		PaymentIntent json.RawMessage `json:"payment_intent"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", false
	}
	field := bytes.TrimSpace(env.PaymentIntent)
	if len(field) == 0 || field[0] != '"' {
		return "", false
	}
	var ref string
	if err := json.Unmarshal(field, &ref); err != nil || ref == "" {
		return "", false
	}
	return ref, true
}

func ownerFromMetadata(metadata map[string]string) (uint, bool) {
	raw := metadata[domain.MetaUserID]
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func metaOrDefault(metadata map[string]string, key, fallback string) string {
	if v := metadata[key]; v != "" {
		return v
	}
	return fallback
}
