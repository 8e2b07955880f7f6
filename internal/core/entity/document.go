package entity

import (
	"context"
	"strings"
	"time"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/core/types"
)

// CashDocument is the common shape of cash receipts and payment vouchers.
// Party is the payer of a receipt or the payee of a voucher.
type CashDocument struct {
	BaseDocument

	DocType numerator.DocType `db:"-" json:"docType"`

	// Number is assigned once by the allocator and never changes.
	Number string `db:"number" json:"number"`

	// Date is the business date; its year scopes the number sequence.
	Date time.Time `db:"doc_date" json:"date"`

	Amount      types.Money `db:"amount" json:"amount"`
	Description string      `db:"description" json:"description"`
	Party       string      `db:"party" json:"party"`

	EmailedAt *time.Time `db:"emailed_at" json:"emailedAt,omitempty"`
	EmailedTo *string    `db:"emailed_to" json:"emailedTo,omitempty"`

	Attachments []Attachment `db:"-" json:"attachments"`
}

// NewCashDocument creates an unnumbered document dated date (now if zero).
func NewCashDocument(docType numerator.DocType, date time.Time) *CashDocument {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return &CashDocument{
		BaseDocument: NewBaseDocument(),
		DocType:      docType,
		Date:         date,
		Amount:       types.Zero(),
		Attachments:  make([]Attachment, 0),
	}
}

// Validate checks the invariants a document must hold before it is numbered.
func (d *CashDocument) Validate(ctx context.Context) error {
	if !d.DocType.Valid() {
		return apperror.NewInvalidDocType(string(d.DocType))
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if d.Amount.IsNegative() {
		return apperror.NewValidation("amount must not be negative").
			WithDetail("field", "amount")
	}
	if d.Amount.GreaterThan(types.MaxMoney) {
		return apperror.NewValidation("amount exceeds the maximum").
			WithDetail("field", "amount").
			WithDetail("max", types.MaxMoney.StringFixed(types.MoneyScale))
	}
	if d.Amount.Exponent() < -types.MoneyScale && !d.Amount.Equal(types.RoundMoney(d.Amount)) {
		return apperror.NewValidation("amount has more than two decimal places").
			WithDetail("field", "amount")
	}
	if strings.TrimSpace(d.Description) == "" {
		return apperror.NewValidation("description is required").
			WithDetail("field", "description")
	}
	if strings.TrimSpace(d.Party) == "" {
		return apperror.NewValidation("party is required").
			WithDetail("field", "party")
	}
	return nil
}

// MarkEmailed records the latest successful email delivery.
func (d *CashDocument) MarkEmailed(to string, at time.Time) {
	d.EmailedAt = &at
	d.EmailedTo = &to
	d.Touch()
}
