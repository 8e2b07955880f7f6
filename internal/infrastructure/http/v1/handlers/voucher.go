package handlers

import (
	"context"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/domain/documents/voucher"
	"cashdesk/internal/infrastructure/http/v1/dto"
)

// NewVoucherHandler creates the /vouchers handler.
func NewVoucherHandler(base *BaseHandler, service *voucher.Service) *DocumentHandler[dto.CreateVoucherRequest] {
	return NewDocumentHandler(base, DocumentHandlerConfig[dto.CreateVoucherRequest]{
		Service: service,
		Create: func(ctx context.Context, req dto.CreateVoucherRequest) (*entity.CashDocument, error) {
			in, err := req.ToInput()
			if err != nil {
				return nil, err
			}
			return service.CreateVoucher(ctx, in)
		},
		MapToDTO: dto.FromVoucher,
	})
}
