package service

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"counsel/internal/domain"
	"counsel/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func newPaymentService() (*PaymentService, *fakeProcessor, *fakePaymentStore, *fakeUserStore) {
	proc := newFakeProcessor()
	payments := newFakePaymentStore()
	users := newFakeUserStore(&models.User{ID: 7, Email: "client@example.com", Name: "Ada"})
	return NewPaymentService(proc, payments, users), proc, payments, users
}

func TestCreateIntentMinimumAmountBoundary(t *testing.T) {
	svc, _, _, _ := newPaymentService()

	_, err := svc.CreateIntent(context.Background(), 7, CreateIntentInput{Amount: decimal.RequireFromString("9.99")})
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindValidation, de.Kind)

	res, err := svc.CreateIntent(context.Background(), 7, CreateIntentInput{Amount: decimal.RequireFromString("10.00")})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PaymentIntentID)
	assert.NotEmpty(t, res.ClientSecret)
}

func TestCreateIntentMinorUnitConversion(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"10.00", 1000},
		{"10.50", 1050},
		{"123.45", 12345},
		{"10.005", 1001}, // halves round up
		{"99.999", 10000},
	}
	for _, tt := range tests {
		svc, proc, _, _ := newPaymentService()
		_, err := svc.CreateIntent(context.Background(), 7, CreateIntentInput{Amount: decimal.RequireFromString(tt.amount)})
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.want, proc.lastCreate.AmountMinor, "amount %s", tt.amount)
	}
}

func TestCreateIntentMetadataCarriesOwner(t *testing.T) {
	svc, proc, _, _ := newPaymentService()
	_, err := svc.CreateIntent(context.Background(), 7, CreateIntentInput{
		Amount:         decimal.RequireFromString("25.00"),
		ConsultationID: "cons-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "7", proc.lastCreate.Metadata[domain.MetaUserID])
	assert.Equal(t, "cons-42", proc.lastCreate.Metadata[domain.MetaConsultationID])
	assert.Equal(t, "usd", proc.lastCreate.Currency)
}

func TestCreateIntentProcessorErrorIsOpaque(t *testing.T) {
	svc, proc, _, _ := newPaymentService()
	proc.createErr = errors.New("stripe: card_declined sk_live_secret")

	_, err := svc.CreateIntent(context.Background(), 7, CreateIntentInput{Amount: decimal.RequireFromString("20.00")})
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindPayment, de.Kind)
	assert.NotContains(t, domain.PublicMessage(err), "sk_live_secret")
}

func TestConfirmPaymentOwnershipMismatch(t *testing.T) {
	svc, proc, _, _ := newPaymentService()
	proc.intents["pi_1"] = &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   1000,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{domain.MetaUserID: "99"},
	}

	_, err := svc.ConfirmPayment(context.Background(), 7, "pi_1", "")
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindPayment, de.Kind)
}

func TestConfirmPaymentRejectsNonSucceededStatus(t *testing.T) {
	svc, proc, _, _ := newPaymentService()
	proc.intents["pi_1"] = &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   1000,
		Status:   stripe.PaymentIntentStatusProcessing,
		Metadata: map[string]string{domain.MetaUserID: "7"},
	}

	_, err := svc.ConfirmPayment(context.Background(), 7, "pi_1", "")
	require.Error(t, err)
	assert.Contains(t, domain.PublicMessage(err), "processing")
}

func TestConfirmPaymentOpportunisticLedgerWrite(t *testing.T) {
	svc, proc, payments, _ := newPaymentService()
	proc.intents["pi_1"] = &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   1000,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{domain.MetaUserID: "7"},
	}

	amount, err := svc.ConfirmPayment(context.Background(), 7, "pi_1", "cons-42")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("10.00")), "got %s", amount)

	p := payments.byIntent("pi_1")
	require.NotNil(t, p)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	assert.Equal(t, uint(7), p.UserID)
}

func TestConfirmPaymentToleratesLedgerWriteFailure(t *testing.T) {
	svc, proc, payments, _ := newPaymentService()
	payments.createErr = errors.New("connection reset")
	proc.intents["pi_1"] = &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   1000,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{domain.MetaUserID: "7"},
	}

	amount, err := svc.ConfirmPayment(context.Background(), 7, "pi_1", "cons-42")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 0, payments.count())
}

func TestConfirmPaymentLogsSkippedWriteOnLookupFailure(t *testing.T) {
	svc, proc, payments, _ := newPaymentService()
	payments.lookupErr = errors.New("connection reset")
	proc.intents["pi_1"] = &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   1000,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{domain.MetaUserID: "7"},
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	amount, err := svc.ConfirmPayment(context.Background(), 7, "pi_1", "cons-42")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 0, payments.count())
	assert.Contains(t, buf.String(), "skipping opportunistic write")
}

func TestRefundNotFound(t *testing.T) {
	svc, _, _, _ := newPaymentService()
	_, err := svc.Refund(context.Background(), 7, "missing")
	require.Error(t, err)
	assert.Equal(t, 404, domain.HTTPStatus(err))
}

func TestRefundOwnershipAndStateGates(t *testing.T) {
	completed := func() *models.Payment {
		return &models.Payment{
			ID:                    "pay-1",
			UserID:                7,
			StripePaymentIntentID: "pi_1",
			Amount:                decimal.RequireFromString("10.00"),
			Status:                domain.PaymentStatusCompleted,
		}
	}

	t.Run("wrong owner", func(t *testing.T) {
		svc, _, payments, _ := newPaymentService()
		require.NoError(t, payments.Create(completed()))
		_, err := svc.Refund(context.Background(), 99, "pay-1")
		require.Error(t, err)
		assert.Contains(t, domain.PublicMessage(err), "not authorized")
	})

	for _, status := range []string{domain.PaymentStatusPending, domain.PaymentStatusRefunded, domain.PaymentStatusFailed} {
		t.Run("status "+status, func(t *testing.T) {
			svc, _, payments, _ := newPaymentService()
			p := completed()
			p.Status = status
			require.NoError(t, payments.Create(p))

			_, err := svc.Refund(context.Background(), 7, "pay-1")
			require.Error(t, err)
			assert.Contains(t, domain.PublicMessage(err), "only completed payments")

			// Rejected attempt leaves status untouched.
			got, gerr := payments.GetByID("pay-1")
			require.NoError(t, gerr)
			assert.Equal(t, status, got.Status)
		})
	}

	t.Run("missing processor reference", func(t *testing.T) {
		svc, _, payments, _ := newPaymentService()
		p := completed()
		p.StripePaymentIntentID = ""
		require.NoError(t, payments.Create(p))
		_, err := svc.Refund(context.Background(), 7, "pay-1")
		require.Error(t, err)
	})
}

func TestRefundProcessorFailureLeavesLedgerUntouched(t *testing.T) {
	svc, proc, payments, _ := newPaymentService()
	proc.refundErr = errors.New("stripe: insufficient funds on platform")
	require.NoError(t, payments.Create(&models.Payment{
		ID:                    "pay-1",
		UserID:                7,
		StripePaymentIntentID: "pi_1",
		Amount:                decimal.RequireFromString("10.00"),
		Status:                domain.PaymentStatusCompleted,
	}))

	_, err := svc.Refund(context.Background(), 7, "pay-1")
	require.Error(t, err)
	assert.Equal(t, domain.KindPayment, mustKind(t, err))
	assert.False(t, strings.Contains(domain.PublicMessage(err), "insufficient funds on platform"))

	got, gerr := payments.GetByID("pay-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
}

func TestRefundSuccessTransitionsLedger(t *testing.T) {
	svc, _, payments, _ := newPaymentService()
	require.NoError(t, payments.Create(&models.Payment{
		ID:                    "pay-1",
		UserID:                7,
		StripePaymentIntentID: "pi_1",
		Amount:                decimal.RequireFromString("49.50"),
		Status:                domain.PaymentStatusCompleted,
	}))

	res, err := svc.Refund(context.Background(), 7, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "re_test_1", res.RefundID)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("49.50")))

	got, gerr := payments.GetByID("pay-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestHistoryNewestFirstCappedAtFifty(t *testing.T) {
	svc, _, payments, _ := newPaymentService()
	for i, id := range []string{"pay-1", "pay-2", "pay-3"} {
		require.NoError(t, payments.Create(&models.Payment{
			ID:                    id,
			UserID:                7,
			StripePaymentIntentID: "pi_" + id,
			Amount:                decimal.NewFromInt(int64(10 + i)),
			Status:                domain.PaymentStatusCompleted,
		}))
	}
	// Another user's payment must not appear.
	require.NoError(t, payments.Create(&models.Payment{
		ID:                    "pay-other",
		UserID:                99,
		StripePaymentIntentID: "pi_other",
		Amount:                decimal.NewFromInt(10),
		Status:                domain.PaymentStatusCompleted,
	}))

	got, err := svc.History(7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "pay-3", got[0].ID)
	assert.Equal(t, "pay-2", got[1].ID)
	assert.Equal(t, "pay-1", got[2].ID)
	assert.Equal(t, 50, payments.lastListLimit)
}

func TestAmountRoundTripLossless(t *testing.T) {
	for _, s := range []string{"10.00", "10.01", "99.99", "250.50", "1234.56"} {
		amount := decimal.RequireFromString(s)
		minor := toMinorUnits(amount)
		back := fromMinorUnits(minor)
		assert.True(t, back.Equal(amount), "round trip of %s gave %s", s, back)
	}
}

func mustKind(t *testing.T, err error) domain.ErrorKind {
	t.Helper()
	de, ok := domain.AsError(err)
	require.True(t, ok)
	return de.Kind
}
