package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SeqWidth is the zero-padded width of the sequence part of a number.
	SeqWidth = 6

	// MaxSeq is the largest sequence value that fits SeqWidth.
	// Allocations beyond it are rejected rather than widened,
	// printed numbers keep a fixed layout.
	MaxSeq int64 = 999_999
)

// Key scopes one independent numbering sequence.
type Key struct {
	DocType DocType
	Year    int
}

// KeyFor validates inputs and derives the sequence key from the document date.
// The year is taken in UTC.
func KeyFor(docType DocType, referenceDate time.Time) (Key, error) {
	if !docType.Valid() {
		return Key{}, invalidDocType(string(docType))
	}
	if referenceDate.IsZero() {
		return Key{}, invalidDate("reference date is required")
	}
	year := referenceDate.UTC().Year()
	if year < 1 || year > 9999 {
		return Key{}, invalidDate(fmt.Sprintf("year %d is outside 0001-9999", year))
	}
	return Key{DocType: docType, Year: year}, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%04d", k.DocType, k.Year)
}

// Format renders a document number: CR-2024-000001.
func Format(key Key, seq int64) string {
	return fmt.Sprintf("%s-%04d-%0*d", key.DocType, key.Year, SeqWidth, seq)
}

// Parse splits a document number back into its key and sequence value.
func Parse(number string) (Key, int64, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return Key{}, 0, fmt.Errorf("malformed document number %q", number)
	}
	docType := DocType(parts[0])
	if !docType.Valid() {
		return Key{}, 0, invalidDocType(parts[0])
	}
	if len(parts[1]) != 4 {
		return Key{}, 0, fmt.Errorf("malformed year in %q", number)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, 0, fmt.Errorf("malformed year in %q: %w", number, err)
	}
	if len(parts[2]) != SeqWidth {
		return Key{}, 0, fmt.Errorf("malformed sequence in %q", number)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 1 {
		return Key{}, 0, fmt.Errorf("malformed sequence in %q", number)
	}
	return Key{DocType: docType, Year: year}, seq, nil
}
