package service

import "counsel/internal/models"

// PaymentStore is what the payment services need from the ledger. Satisfied by
// repository.PaymentRepository.
type PaymentStore interface {
	Create(p *models.Payment) error
	GetByID(id string) (*models.Payment, error)
	GetByIntentRef(ref string) (*models.Payment, error)
	ListByUser(userID uint, limit int) ([]models.Payment, error)
	MarkRefunded(id string) (bool, error)
}

// UserStore is what the payment services need from the user table. Satisfied by
// repository.UserRepository.
type UserStore interface {
	Create(u *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}
