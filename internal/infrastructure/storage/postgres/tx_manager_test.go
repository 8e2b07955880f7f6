package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestTimeoutSetting(t *testing.T) {
	assert.Equal(t, "", timeoutSetting(0))
	assert.Equal(t, "", timeoutSetting(-time.Second))
	assert.Equal(t, "1ms", timeoutSetting(time.Microsecond))
	assert.Equal(t, "5000ms", timeoutSetting(5*time.Second))
}

func TestCurrentTx_DetachedShadowIsNil(t *testing.T) {
	m := &TxManager{}
	ctx := context.WithValue(context.Background(), txKey{}, pgx.Tx(nil))

	assert.Nil(t, m.currentTx(ctx))
	assert.Nil(t, m.currentTx(context.Background()))
}

func TestDefaultTxOptions(t *testing.T) {
	opts := DefaultTxOptions()
	assert.Equal(t, pgx.ReadCommitted, opts.IsolationLevel)
	assert.Equal(t, pgx.ReadWrite, opts.AccessMode)
	assert.Zero(t, opts.LockTimeout)
}
