package syncer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	irpc "github.com/goran-ethernal/PoolSync/internal/rpc"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"golang.org/x/sync/errgroup"
)

// LogFilter selects the logs fetched by a LogFetcher call.
type LogFilter struct {
	Addresses []common.Address
	Topics    [][]common.Hash
}

// LogFetcher fetches logs over block ranges split into chunks fetched concurrently.
type LogFetcher struct {
	rpc            rpc.EthClient
	log            *logger.Logger
	maxConcurrency int
}

// NewLogFetcher creates a LogFetcher running at most maxConcurrency requests per call.
func NewLogFetcher(client rpc.EthClient, maxConcurrency int, log *logger.Logger) *LogFetcher {
	return &LogFetcher{
		rpc:            client,
		log:            log,
		maxConcurrency: maxConcurrency,
	}
}

type chunkResult struct {
	logs []types.Log
	err  error
}

// FetchLogs fetches logs matching filter over [fromBlock, toBlock] in chunks of chunkSize blocks.
// Logs are returned in chunk order. Chunks that fail are dropped and returned as failed ranges
// together with their errors; the returned error is set only when ctx was cancelled.
func (lf *LogFetcher) FetchLogs(
	ctx context.Context,
	filter LogFilter,
	fromBlock, toBlock, chunkSize uint64,
) ([]types.Log, []FailedRange, error) {
	chunks := syncer.BlockRange{From: fromBlock, To: toBlock}.Split(chunkSize)
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	results := make([]chunkResult, len(chunks))

	var g errgroup.Group
	if lf.maxConcurrency > 0 {
		g.SetLimit(lf.maxConcurrency)
	}

	for i, chunk := range chunks {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				return nil
			}
			results[i].logs, results[i].err = lf.fetchLogsWithRetry(ctx, chunk.From, chunk.To, filter)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		logs   []types.Log
		failed []FailedRange
	)
	for i, res := range results {
		if res.err != nil {
			lf.log.Warnf("dropping log chunk %s after retries: %v", chunks[i], res.err)
			failed = append(failed, FailedRange{Range: chunks[i], Err: res.err})
			continue
		}
		logs = append(logs, res.logs...)
	}

	lf.log.Debugf("fetched %d logs from %d to %d in %d chunks (%d failed)",
		len(logs), fromBlock, toBlock, len(chunks), len(failed))

	return logs, failed, nil
}

// FailedRange is a chunk that could not be fetched.
type FailedRange struct {
	Range syncer.BlockRange
	Err   error
}

// fetchLogsWithRetry fetches logs and splits the range when the node reports too many results.
// Both parts of a split are fetched so the whole range is covered.
func (lf *LogFetcher) fetchLogsWithRetry(
	ctx context.Context,
	fromBlock, toBlock uint64,
	filter LogFilter,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: filter.Addresses,
		Topics:    filter.Topics,
	}

	logs, err := lf.rpc.GetLogs(ctx, query)
	if err == nil {
		return logs, nil
	}

	ok, errData := irpc.IsTooManyResultsError(err)
	if !ok {
		return nil, err
	}

	if fromBlock == toBlock {
		return nil, fmt.Errorf("cannot split range further, single block %d has too many logs", fromBlock)
	}

	// split point: end of the first part
	splitAt := fromBlock + (toBlock-fromBlock)/2
	if suggestedFrom, suggestedTo, ok := irpc.ParseSuggestedBlockRange(errData); ok &&
		suggestedFrom == fromBlock && suggestedTo >= fromBlock && suggestedTo < toBlock {
		lf.log.Infof("too many logs, retrying with suggested block range from %d to %d (original range %d to %d)",
			suggestedFrom, suggestedTo, fromBlock, toBlock)
		splitAt = suggestedTo
	} else {
		lf.log.Infof("too many logs, splitting range %d to %d at block %d", fromBlock, toBlock, splitAt)
	}
	RangeSplitInc()

	first, err := lf.fetchLogsWithRetry(ctx, fromBlock, splitAt, filter)
	if err != nil {
		return nil, err
	}

	second, err := lf.fetchLogsWithRetry(ctx, splitAt+1, toBlock, filter)
	if err != nil {
		return nil, err
	}

	return append(first, second...), nil
}
