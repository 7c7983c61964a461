package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/store/storetest"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/stretchr/testify/require"
)

const dsnEnv = "POOLSYNC_TEST_PG_DSN"

func TestPoolStore(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	// subtests share one database, so they must not run in parallel
	storetest.Run(t, func(t *testing.T) store.PoolDatabase {
		ctx := context.Background()

		s, err := New(ctx, dsn, logger.NewNopLogger())
		require.NoError(t, err)

		_, err = s.pool.Exec(ctx, `TRUNCATE pools, sync_state, sync_gaps, sync_runs RESTART IDENTITY`)
		require.NoError(t, err)

		return s
	})
}

func TestNew_RequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "", logger.NewNopLogger())
	require.Error(t, err)
}
