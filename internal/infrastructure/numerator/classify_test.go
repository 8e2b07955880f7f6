package numerator

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errClass
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, classConstraint},
		{"wrapped unique violation", fmt.Errorf("insert counter: %w", &pgconn.PgError{Code: "23505"}), classConstraint},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, classLockConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, classLockConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, classLockConflict},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, classLockConflict},
		{"connection failure", &pgconn.PgError{Code: "08006"}, classUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, classUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, classUnavailable},
		{"reset by peer", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, classUnavailable},
		{"eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), classUnavailable},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, classOther},
		{"plain", errors.New("boom"), classOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
