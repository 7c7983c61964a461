package types

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/internal/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseBlockFinality(t *testing.T) {
	for _, f := range []BlockFinality{FinalityFinalized, FinalitySafe, FinalityLatest} {
		require.True(t, f.IsValid())

		parsed, err := ParseBlockFinality(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}

	for _, s := range []string{"", "Finalized", "pending", "earliest"} {
		require.False(t, BlockFinality(s).IsValid(), s)

		_, err := ParseBlockFinality(s)
		require.ErrorContains(t, err, "must be one of", s)
	}
}

func TestBlockFinality_HeadBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("latest with lag", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().BlockNumber(mock.Anything).Return(uint64(100), nil).Once()

		head, err := FinalityLatest.HeadBlock(ctx, client, 5)
		require.NoError(t, err)
		require.Equal(t, uint64(95), head)
	})

	t.Run("latest lag saturates at genesis", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().BlockNumber(mock.Anything).Return(uint64(3), nil).Once()

		head, err := FinalityLatest.HeadBlock(ctx, client, 5)
		require.NoError(t, err)
		require.Zero(t, head)
	})

	t.Run("finalized", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().GetFinalizedBlockHeader(mock.Anything).
			Return(&ethtypes.Header{Number: big.NewInt(80)}, nil).Once()

		head, err := FinalityFinalized.HeadBlock(ctx, client, 5)
		require.NoError(t, err)
		require.Equal(t, uint64(80), head)
	})

	t.Run("safe", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().GetSafeBlockHeader(mock.Anything).
			Return(&ethtypes.Header{Number: big.NewInt(90)}, nil).Once()

		head, err := FinalitySafe.HeadBlock(ctx, client, 0)
		require.NoError(t, err)
		require.Equal(t, uint64(90), head)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := BlockFinality("pending").HeadBlock(ctx, mocks.NewEthClient(t), 0)
		require.ErrorContains(t, err, "invalid block finality")
	})

	t.Run("provider failure", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().BlockNumber(mock.Anything).Return(uint64(0), errors.New("connection refused")).Once()

		_, err := FinalityLatest.HeadBlock(ctx, client, 0)
		require.ErrorContains(t, err, "connection refused")
	})
}
