package handlers

import (
	"context"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/domain/documents/receipt"
	"cashdesk/internal/infrastructure/http/v1/dto"
)

// NewReceiptHandler creates the /receipts handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service) *DocumentHandler[dto.CreateReceiptRequest] {
	return NewDocumentHandler(base, DocumentHandlerConfig[dto.CreateReceiptRequest]{
		Service: service,
		Create: func(ctx context.Context, req dto.CreateReceiptRequest) (*entity.CashDocument, error) {
			in, err := req.ToInput()
			if err != nil {
				return nil, err
			}
			return service.CreateReceipt(ctx, in)
		},
		MapToDTO: dto.FromReceipt,
	})
}
