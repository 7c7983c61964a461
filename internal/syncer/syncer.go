package syncer

import (
	"context"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	itypes "github.com/goran-ethernal/PoolSync/internal/types"
	"github.com/goran-ethernal/PoolSync/pkg/fetcher"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/rpc"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure RPCSyncer implements syncer.Syncer interface.
var _ syncer.Syncer = (*RPCSyncer)(nil)

const (
	defaultChunkSize          = 10_000
	defaultInfoBatchSize      = 50
	defaultMaxConcurrency     = 100
	defaultAddressFilterLimit = 500
)

// Config contains configuration for the RPCSyncer.
type Config struct {
	// Chain the node is expected to serve
	Chain pool.Chain

	// Finality selects the block treated as head
	Finality itypes.BlockFinality

	// FinalizedLag is subtracted from the latest block (only for "latest" mode)
	FinalizedLag uint64

	// AddressChunkSize is the block span of one creation log request
	AddressChunkSize uint64

	// LiquidityChunkSize is the block span of one liquidity log request
	LiquidityChunkSize uint64

	// InfoBatchSize is the number of pools built per call batch
	InfoBatchSize int

	// MaxConcurrency bounds concurrent requests of one operation
	MaxConcurrency int

	// AddressFilterLimit is the largest pool set put into a liquidity log filter
	AddressFilterLimit int
}

func (c *Config) applyDefaults() {
	if c.Finality == "" {
		c.Finality = itypes.FinalityLatest
	}
	if c.AddressChunkSize == 0 {
		c.AddressChunkSize = defaultChunkSize
	}
	if c.LiquidityChunkSize == 0 {
		c.LiquidityChunkSize = defaultChunkSize
	}
	if c.InfoBatchSize <= 0 {
		c.InfoBatchSize = defaultInfoBatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.AddressFilterLimit <= 0 {
		c.AddressFilterLimit = defaultAddressFilterLimit
	}
}

// Option configures an RPCSyncer.
type Option func(*RPCSyncer)

// WithGapHandler registers the handler receiving dropped chunks.
func WithGapHandler(h syncer.GapHandler) Option {
	return func(s *RPCSyncer) {
		s.onGap = h
	}
}

// RPCSyncer implements syncer.Syncer on top of a JSON-RPC node.
type RPCSyncer struct {
	cfg      Config
	rpc      rpc.EthClient
	logs     *LogFetcher
	fetchers map[pool.PoolType]fetcher.PoolFetcher
	onGap    syncer.GapHandler
	log      *logger.Logger
}

// New creates an RPCSyncer serving the given fetchers. Every fetcher must know its factory
// address on the configured chain.
func New(
	cfg Config,
	client rpc.EthClient,
	fetchers []fetcher.PoolFetcher,
	log *logger.Logger,
	opts ...Option,
) (*RPCSyncer, error) {
	cfg.applyDefaults()
	if !cfg.Finality.IsValid() {
		return nil, fmt.Errorf("invalid block finality: %s", cfg.Finality)
	}

	byType := make(map[pool.PoolType]fetcher.PoolFetcher, len(fetchers))
	for _, f := range fetchers {
		if _, ok := f.FactoryAddress(cfg.Chain); !ok {
			return nil, fmt.Errorf("pool type %s is not deployed on chain %s: %w",
				f.PoolType(), cfg.Chain, syncer.ErrUnknownPoolType)
		}
		byType[f.PoolType()] = f
	}

	s := &RPCSyncer{
		cfg:      cfg,
		rpc:      client,
		logs:     NewLogFetcher(client, cfg.MaxConcurrency, log),
		fetchers: byType,
		onGap:    func(syncer.Gap) {},
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// BlockNumber returns the head block according to the configured finality.
func (s *RPCSyncer) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := s.cfg.Finality.HeadBlock(ctx, s.rpc, s.cfg.FinalizedLag)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", syncer.ErrProvider, err)
	}

	HeadBlockSet(head)
	return head, nil
}

// VerifyChain checks the chain id reported by the node.
func (s *RPCSyncer) VerifyChain(ctx context.Context) error {
	id, err := s.rpc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: get chain id: %w", syncer.ErrProvider, err)
	}

	if id != s.cfg.Chain.ChainID() {
		return fmt.Errorf("%w: expected %s (%d), node reports %d",
			syncer.ErrChainMismatch, s.cfg.Chain, s.cfg.Chain.ChainID(), id)
	}
	return nil
}

func (s *RPCSyncer) fetcherFor(poolType pool.PoolType) (fetcher.PoolFetcher, error) {
	f, ok := s.fetchers[poolType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", syncer.ErrUnknownPoolType, poolType)
	}
	return f, nil
}

func (s *RPCSyncer) reportFailed(poolType pool.PoolType, kind syncer.GapKind, failed []FailedRange) {
	for _, fr := range failed {
		DroppedChunkInc(poolType.String(), string(kind))
		s.onGap(syncer.Gap{
			PoolType: poolType,
			Kind:     kind,
			Range:    fr.Range,
			Reason:   fr.Err.Error(),
		})
	}
}

// FetchAddresses returns pool addresses from creation events within [from, to],
// de-duplicated and in log order.
func (s *RPCSyncer) FetchAddresses(
	ctx context.Context,
	poolType pool.PoolType,
	from, to uint64,
) ([]common.Address, error) {
	f, err := s.fetcherFor(poolType)
	if err != nil {
		return nil, err
	}
	if from > to {
		return nil, nil
	}

	factory, _ := f.FactoryAddress(s.cfg.Chain)
	filter := LogFilter{
		Addresses: []common.Address{factory},
		Topics:    [][]common.Hash{{f.CreationEvent()}},
	}

	logs, failed, err := s.logs.FetchLogs(ctx, filter, from, to, s.cfg.AddressChunkSize)
	if err != nil {
		return nil, err
	}
	s.reportFailed(poolType, syncer.GapDiscovery, failed)
	LogsFetchedAdd(poolType.String(), string(syncer.GapDiscovery), len(logs))

	seen := make(map[common.Address]struct{}, len(logs))
	addrs := make([]common.Address, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}

		addr, err := f.LogToAddress(l)
		if err != nil {
			s.log.Debugf("skipping undecodable %s creation log in tx %s: %v", poolType, l.TxHash, err)
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	s.log.Debugf("found %d %s pools between blocks %d and %d", len(addrs), poolType, from, to)

	return addrs, nil
}

// PopulatePoolInfo builds pools at block in batches. Failed batches are dropped and reported
// as a pool info gap; pools that fail individually are omitted.
func (s *RPCSyncer) PopulatePoolInfo(
	ctx context.Context,
	poolType pool.PoolType,
	addrs []common.Address,
	block uint64,
) ([]*pool.Pool, error) {
	f, err := s.fetcherFor(poolType)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	batches := slices.Collect(slices.Chunk(addrs, s.cfg.InfoBatchSize))
	type batchResult struct {
		pools []*pool.Pool
		err   error
	}
	results := make([]batchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				return nil
			}
			results[i].pools, results[i].err = f.BuildPools(ctx, s.rpc, batch, block)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pools := make([]*pool.Pool, 0, len(addrs))
	for i, res := range results {
		if res.err != nil {
			s.log.Warnf("dropping batch of %d %s pools at block %d: %v", len(batches[i]), poolType, block, res.err)
			DroppedChunkInc(poolType.String(), string(syncer.GapPoolInfo))
			s.onGap(syncer.Gap{
				PoolType: poolType,
				Kind:     syncer.GapPoolInfo,
				Range:    syncer.BlockRange{From: block, To: block},
				Reason:   res.err.Error(),
			})
			continue
		}
		pools = append(pools, res.pools...)
	}

	if missing := len(addrs) - len(pools); missing > 0 {
		s.log.Infof("%d of %d %s pools could not be built at block %d", missing, len(addrs), poolType, block)
	}
	PoolsBuiltAdd(poolType.String(), len(pools))

	return pools, nil
}

// PopulateLiquidity applies liquidity logs within [from, to] to pools in ascending block order,
// keeping node order inside a block. It returns the touched pool addresses in first-touch order.
func (s *RPCSyncer) PopulateLiquidity(
	ctx context.Context,
	poolType pool.PoolType,
	pools map[common.Address]*pool.Pool,
	from, to uint64,
	isInitial bool,
) ([]common.Address, error) {
	f, err := s.fetcherFor(poolType)
	if err != nil {
		return nil, err
	}

	topics := f.LiquidityTopics()
	if len(topics) == 0 || len(pools) == 0 || from > to {
		return nil, nil
	}

	filter := LogFilter{Topics: [][]common.Hash{topics}}
	if len(pools) <= s.cfg.AddressFilterLimit {
		filter.Addresses = sortedAddresses(pools)
	}

	logs, failed, err := s.logs.FetchLogs(ctx, filter, from, to, s.cfg.LiquidityChunkSize)
	if err != nil {
		return nil, err
	}
	s.reportFailed(poolType, syncer.GapLiquidity, failed)
	LogsFetchedAdd(poolType.String(), string(syncer.GapLiquidity), len(logs))

	blocks, byBlock := groupByBlock(logs)

	var (
		touched []common.Address
		seen    = make(map[common.Address]struct{})
		applied int
	)
	for _, block := range blocks {
		for _, l := range byBlock[block] {
			if l.Removed {
				continue
			}

			p, ok := pools[l.Address]
			if !ok {
				continue
			}

			if err := f.ApplyLog(p, l, isInitial); err != nil {
				s.log.Debugf("skipping %s log %d in block %d for pool %s: %v",
					poolType, l.Index, l.BlockNumber, l.Address, err)
				continue
			}
			p.Touch(l.BlockNumber)
			applied++

			if _, ok := seen[l.Address]; !ok {
				seen[l.Address] = struct{}{}
				touched = append(touched, l.Address)
			}
		}
	}
	LogsAppliedAdd(poolType.String(), applied)

	s.log.Debugf("applied %d %s liquidity logs between blocks %d and %d (initial=%t), %d pools touched",
		applied, poolType, from, to, isInitial, len(touched))

	return touched, nil
}

// groupByBlock returns the distinct block numbers in ascending order together with
// the logs of each block in their original order.
func groupByBlock(logs []types.Log) ([]uint64, map[uint64][]types.Log) {
	byBlock := make(map[uint64][]types.Log)
	for _, l := range logs {
		byBlock[l.BlockNumber] = append(byBlock[l.BlockNumber], l)
	}

	blocks := make([]uint64, 0, len(byBlock))
	for b := range byBlock {
		blocks = append(blocks, b)
	}
	slices.Sort(blocks)

	return blocks, byBlock
}

func sortedAddresses(pools map[common.Address]*pool.Pool) []common.Address {
	addrs := make([]common.Address, 0, len(pools))
	for addr := range pools {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, func(a, b common.Address) int { return a.Cmp(b) })
	return addrs
}
