// Package receipt provides the cash receipt document (CR).
package receipt

import (
	"context"
	"time"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/core/types"
	"cashdesk/internal/domain/documents"
)

// Kind describes cash receipts. Money comes in from a payer.
var Kind = documents.Kind{
	DocType:    numerator.DocTypeCashReceipt,
	Title:      "Receipt",
	PartyLabel: "Payer",
	EntityType: "receipt",
}

// CreateInput is the user input for a new receipt.
type CreateInput struct {
	Date        time.Time
	Amount      types.Money
	Description string
	Payer       string
}

// Service provides business operations for receipts.
type Service struct {
	*documents.Service
}

// NewService creates a receipt service.
func NewService(deps documents.Deps) *Service {
	return &Service{Service: documents.NewService(Kind, deps)}
}

// CreateReceipt numbers and stores a new receipt.
func (s *Service) CreateReceipt(ctx context.Context, in CreateInput) (*entity.CashDocument, error) {
	return s.Create(ctx, documents.Draft{
		Date:        in.Date,
		Amount:      in.Amount,
		Description: in.Description,
		Party:       in.Payer,
	})
}
