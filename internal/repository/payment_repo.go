package repository

import (
	"errors"

	"counsel/internal/domain"
	"counsel/internal/models"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ErrDuplicateIntent signals that a row for the same payment intent already
// exists. The unique index on stripe_payment_intent_id makes the insert the
// atomic check-and-set for webhook redelivery.
var ErrDuplicateIntent = errors.New("payment for intent already exists")

func (r *PaymentRepository) Create(p *models.Payment) error {
	err := r.db.Create(p).Error
	if isDuplicateKey(err) {
		return ErrDuplicateIntent
	}
	return err
}

func (r *PaymentRepository) GetByID(id string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByIntentRef(ref string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("stripe_payment_intent_id = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's payments newest first, capped at limit.
func (r *PaymentRepository) ListByUser(userID uint, limit int) ([]models.Payment, error) {
	var out []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkRefunded transitions completed -> refunded as a conditional update so two
// racing refund attempts cannot both pass the state gate. Returns false when no
// row was in the completed state.
func (r *PaymentRepository) MarkRefunded(id string) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentStatusCompleted).
		Update("status", domain.PaymentStatusRefunded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
