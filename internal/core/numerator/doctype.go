// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DocType is the closed category code of a financial document.
type DocType string

const (
	// DocTypeCashReceipt numbers cash receipts (CR-2024-000001).
	DocTypeCashReceipt DocType = "CR"
	// DocTypePaymentVoucher numbers payment vouchers (PV-2024-000001).
	DocTypePaymentVoucher DocType = "PV"
)

var docTypeCode = regexp.MustCompile(`^[A-Z]{2,4}$`)

var (
	docTypesMu sync.RWMutex
	docTypes   = map[DocType]string{
		DocTypeCashReceipt:    "Cash Receipt",
		DocTypePaymentVoucher: "Payment Voucher",
	}
)

// RegisterDocType extends the closed set with a new category.
// Call during startup, before any allocation for that code.
func RegisterDocType(code DocType, title string) error {
	if !docTypeCode.MatchString(string(code)) {
		return fmt.Errorf("document type code %q must be 2-4 upper-case letters", code)
	}
	docTypesMu.Lock()
	defer docTypesMu.Unlock()
	if _, exists := docTypes[code]; exists {
		return fmt.Errorf("document type %q already registered", code)
	}
	docTypes[code] = title
	return nil
}

// Valid reports whether d belongs to the registered set.
func (d DocType) Valid() bool {
	docTypesMu.RLock()
	defer docTypesMu.RUnlock()
	_, ok := docTypes[d]
	return ok
}

// Title returns the human-readable category name.
func (d DocType) Title() string {
	docTypesMu.RLock()
	defer docTypesMu.RUnlock()
	return docTypes[d]
}

func (d DocType) String() string { return string(d) }

// ParseDocType normalizes and validates a category code.
func ParseDocType(s string) (DocType, error) {
	d := DocType(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", invalidDocType(s)
	}
	return d, nil
}

// DocTypes lists registered codes in lexical order.
func DocTypes() []DocType {
	docTypesMu.RLock()
	defer docTypesMu.RUnlock()
	out := make([]DocType, 0, len(docTypes))
	for d := range docTypes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
