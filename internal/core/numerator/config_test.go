package numerator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashdesk/internal/core/apperror"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		key  Key
		seq  int64
		want string
	}{
		{Key{DocTypeCashReceipt, 2024}, 1, "CR-2024-000001"},
		{Key{DocTypePaymentVoucher, 2024}, 7, "PV-2024-000007"},
		{Key{DocTypeCashReceipt, 2025}, 123456, "CR-2025-123456"},
		{Key{DocTypePaymentVoucher, 2024}, MaxSeq, "PV-2024-999999"},
		{Key{DocTypeCashReceipt, 7}, 42, "CR-0007-000042"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.key, tt.seq))
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	key, seq, err := Parse("PV-2024-000007")
	require.NoError(t, err)
	assert.Equal(t, Key{DocType: DocTypePaymentVoucher, Year: 2024}, key)
	assert.Equal(t, int64(7), seq)
	assert.Equal(t, "PV-2024-000007", Format(key, seq))
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "CR-2024", "XX-2024-000001", "CR-24-000001", "CR-2024-1", "CR-2024-000000", "CR-2024-00000a"} {
		t.Run(in, func(t *testing.T) {
			_, _, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestKeyFor(t *testing.T) {
	key, err := KeyFor(DocTypeCashReceipt, time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "CR-2024", key.String())
}

func TestKeyFor_UsesUTCYear(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	key, err := KeyFor(DocTypePaymentVoucher, time.Date(2024, 12, 31, 23, 30, 0, 0, est))

	require.NoError(t, err)
	assert.Equal(t, "PV-2025", key.String())
}

func TestKeyFor_InvalidDocType(t *testing.T) {
	_, err := KeyFor(DocType("XX"), time.Now())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocType))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidDocType, appErr.Code)
	assert.False(t, IsRetryable(err))
}

func TestKeyFor_InvalidDate(t *testing.T) {
	_, err := KeyFor(DocTypeCashReceipt, time.Time{})
	assert.True(t, errors.Is(err, ErrInvalidDate))

	_, err = KeyFor(DocTypeCashReceipt, time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestParseDocType(t *testing.T) {
	d, err := ParseDocType(" pv ")
	require.NoError(t, err)
	assert.Equal(t, DocTypePaymentVoucher, d)
	assert.Equal(t, "Payment Voucher", d.Title())

	_, err = ParseDocType("INV")
	assert.ErrorIs(t, err, ErrInvalidDocType)
}

func TestRegisterDocType(t *testing.T) {
	require.Error(t, RegisterDocType("cr", "lower case"))
	require.Error(t, RegisterDocType(DocTypeCashReceipt, "duplicate"))

	require.NoError(t, RegisterDocType("JV", "Journal Voucher"))
	assert.True(t, DocType("JV").Valid())
	assert.Contains(t, DocTypes(), DocType("JV"))
}

func TestErrorWrappers(t *testing.T) {
	key := Key{DocType: DocTypeCashReceipt, Year: 2024}
	cause := errors.New("boom")

	err := StoreUnavailable(key, cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.True(t, apperror.IsRetryable(err))

	err = LockConflict(key, cause)
	assert.ErrorIs(t, err, ErrLockConflict)
	assert.True(t, IsRetryable(err))

	err = ConstraintViolation(key, cause)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.False(t, IsRetryable(err))

	err = SequenceExhausted(key, MaxSeq)
	assert.ErrorIs(t, err, ErrSequenceExhausted)
	assert.Equal(t, 422, apperror.GetHTTPStatus(err))
}
