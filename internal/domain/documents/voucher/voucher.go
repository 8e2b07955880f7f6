// Package voucher provides the payment voucher document (PV).
package voucher

import (
	"context"
	"time"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/core/types"
	"cashdesk/internal/domain/documents"
)

// Kind describes payment vouchers. Money goes out to a payee.
var Kind = documents.Kind{
	DocType:    numerator.DocTypePaymentVoucher,
	Title:      "Payment Voucher",
	PartyLabel: "Payee",
	EntityType: "voucher",
}

// CreateInput is the user input for a new voucher.
type CreateInput struct {
	Date        time.Time
	Amount      types.Money
	Description string
	Payee       string
}

// Service provides business operations for payment vouchers.
type Service struct {
	*documents.Service
}

// NewService creates a voucher service.
func NewService(deps documents.Deps) *Service {
	return &Service{Service: documents.NewService(Kind, deps)}
}

// CreateVoucher numbers and stores a new voucher.
func (s *Service) CreateVoucher(ctx context.Context, in CreateInput) (*entity.CashDocument, error) {
	return s.Create(ctx, documents.Draft{
		Date:        in.Date,
		Amount:      in.Amount,
		Description: in.Description,
		Party:       in.Payee,
	})
}
