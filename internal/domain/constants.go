package domain

import "github.com/shopspring/decimal"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
)

// Stripe webhook event types this core acts on. Everything else is acknowledged
// without side effects.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

const DefaultCurrency = "usd"

// Intent metadata keys. The reconciler recovers ownership from these, so they
// must survive the round trip through the processor unchanged.
const (
	MetaUserID              = "userId"
	MetaConsultationID      = "consultationId"
	MetaClientName          = "clientName"
	MetaCategory            = "category"
	MetaConsultationSummary = "consultationSummary"
)

const (
	DefaultConsultationSummary = "Legal consultation"
	DefaultCategory            = "General Consultation"
)

// MinPaymentAmount is the smallest chargeable amount in major units, checked
// before minor-unit conversion. Boundary inclusive: 10.00 is accepted.
var MinPaymentAmount = decimal.NewFromInt(10)

// TaxRate applied to invoice base amounts (21% VAT).
var TaxRate = decimal.NewFromFloat(0.21)
