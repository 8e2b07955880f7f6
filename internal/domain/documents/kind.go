// Package documents provides the workflow shared by cash receipts and payment vouchers:
// allocate a number, persist, attach files, render and email.
package documents

import (
	"cashdesk/internal/core/numerator"
)

// Kind describes one cash document category.
type Kind struct {
	DocType numerator.DocType
	// Title is printed on PDFs and in email subjects.
	Title string
	// PartyLabel names the counterparty: "Payer" or "Payee".
	PartyLabel string
	// EntityType identifies the document in the audit trail.
	EntityType string
}
