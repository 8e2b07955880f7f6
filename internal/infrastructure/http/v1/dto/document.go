package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/types"
	"cashdesk/internal/domain"
	"cashdesk/internal/domain/documents/receipt"
	"cashdesk/internal/domain/documents/voucher"
)

// --- Requests ---

// CreateReceiptRequest is the body of POST /receipts.
// Amount accepts a JSON string ("125.50") or number.
type CreateReceiptRequest struct {
	Date        string           `json:"date"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Payer       string           `json:"payer" binding:"required"`
}

// ToInput converts the request into receipt input.
func (r CreateReceiptRequest) ToInput() (receipt.CreateInput, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return receipt.CreateInput{}, err
	}
	return receipt.CreateInput{
		Date:        date,
		Amount:      amountOrZero(r.Amount),
		Description: r.Description,
		Payer:       r.Payer,
	}, nil
}

// CreateVoucherRequest is the body of POST /vouchers.
type CreateVoucherRequest struct {
	Date        string           `json:"date"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Payee       string           `json:"payee" binding:"required"`
}

// ToInput converts the request into voucher input.
func (r CreateVoucherRequest) ToInput() (voucher.CreateInput, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return voucher.CreateInput{}, err
	}
	return voucher.CreateInput{
		Date:        date,
		Amount:      amountOrZero(r.Amount),
		Description: r.Description,
		Payee:       r.Payee,
	}, nil
}

// SendEmailRequest is the body of POST /:id/email.
type SendEmailRequest struct {
	To string `json:"to" binding:"required"`
}

// ListDocumentsQuery holds list query parameters.
type ListDocumentsQuery struct {
	Search   string `form:"search"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Limit    int    `form:"limit" binding:"min=0"`
	Offset   int    `form:"offset" binding:"min=0"`
}

// ToFilter converts query parameters to a domain filter.
func (q ListDocumentsQuery) ToFilter() (domain.ListFilter, error) {
	from, err := optionalDate("dateFrom", q.DateFrom)
	if err != nil {
		return domain.ListFilter{}, err
	}
	to, err := optionalDate("dateTo", q.DateTo)
	if err != nil {
		return domain.ListFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return domain.ListFilter{}, apperror.NewValidation("dateTo is before dateFrom").
			WithDetail("field", "dateTo")
	}
	return domain.ListFilter{
		Search:   q.Search,
		DateFrom: from,
		DateTo:   to,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}.Normalize(), nil
}

func amountOrZero(d *decimal.Decimal) types.Money {
	if d == nil {
		return types.Zero()
	}
	return *d
}

// --- Responses ---

// AttachmentResponse describes a stored file.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	ObjectKey    string    `json:"objectKey"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedBy   string    `json:"uploadedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromAttachment creates AttachmentResponse from entity.Attachment.
func FromAttachment(a entity.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID.String(),
		ObjectKey:    a.ObjectKey,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Size:         a.SizeBytes,
		UploadedBy:   a.UploadedBy,
		CreatedAt:    a.CreatedAt,
	}
}

// DocumentResponse is a receipt or voucher. Exactly one of Payer and Payee is set.
type DocumentResponse struct {
	ID          string               `json:"id"`
	DocType     string               `json:"docType"`
	Number      string               `json:"number"`
	Date        string               `json:"date"`
	Amount      string               `json:"amount"`
	Description string               `json:"description"`
	Payer       string               `json:"payer,omitempty"`
	Payee       string               `json:"payee,omitempty"`
	CreatedBy   string               `json:"createdBy"`
	EmailedAt   *time.Time           `json:"emailedAt,omitempty"`
	EmailedTo   *string              `json:"emailedTo,omitempty"`
	Attachments []AttachmentResponse `json:"attachments"`
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// FromReceipt maps a receipt.
func FromReceipt(d *entity.CashDocument) DocumentResponse {
	resp := fromCashDocument(d)
	resp.Payer = d.Party
	return resp
}

// FromVoucher maps a payment voucher.
func FromVoucher(d *entity.CashDocument) DocumentResponse {
	resp := fromCashDocument(d)
	resp.Payee = d.Party
	return resp
}

func fromCashDocument(d *entity.CashDocument) DocumentResponse {
	atts := make([]AttachmentResponse, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		atts = append(atts, FromAttachment(a))
	}
	return DocumentResponse{
		ID:          d.ID.String(),
		DocType:     d.DocType.String(),
		Number:      d.Number,
		Date:        d.Date.Format(DateLayout),
		Amount:      types.RoundMoney(d.Amount).StringFixed(types.MoneyScale),
		Description: d.Description,
		CreatedBy:   d.CreatedBy,
		EmailedAt:   d.EmailedAt,
		EmailedTo:   d.EmailedTo,
		Attachments: atts,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
