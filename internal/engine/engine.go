package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/metrics"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
	"github.com/goran-ethernal/PoolSync/pkg/syncer"
)

// Config contains configuration for the engine.
type Config struct {
	// Chain the pools live on
	Chain pool.Chain

	// PoolTypes to synchronize; processed in name order
	PoolTypes []pool.PoolType
}

// Option configures a PoolSync.
type Option func(*PoolSync)

// WithGapCollector makes the engine persist gaps buffered by c. The same collector
// must be registered as the syncer's gap handler.
func WithGapCollector(c *GapCollector) Option {
	return func(p *PoolSync) {
		p.gaps = c
	}
}

// PoolSync keeps the stored pools of one chain in step with the chain head.
// It is not safe for concurrent use; SyncPools calls must not overlap.
type PoolSync struct {
	chain  pool.Chain
	types  []pool.PoolType
	syncer syncer.Syncer
	db     store.PoolDatabase
	gaps   *GapCollector
	log    *logger.Logger

	verified bool
}

// New creates a PoolSync. The syncer must serve every configured pool type.
func New(
	cfg Config,
	s syncer.Syncer,
	db store.PoolDatabase,
	log *logger.Logger,
	opts ...Option,
) (*PoolSync, error) {
	if s == nil {
		return nil, errors.New("syncer is required")
	}
	if db == nil {
		return nil, errors.New("pool database is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if len(cfg.PoolTypes) == 0 {
		return nil, errors.New("at least one pool type is required")
	}

	types := slices.Clone(cfg.PoolTypes)
	pool.SortPoolTypes(types)
	types = slices.Compact(types)
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %s", syncer.ErrUnknownPoolType, t)
		}
	}

	p := &PoolSync{
		chain:  cfg.Chain,
		types:  types,
		syncer: s,
		db:     db,
		gaps:   NewGapCollector(),
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// PoolTypes returns the synchronized pool types in processing order.
func (e *PoolSync) PoolTypes() []pool.PoolType {
	return slices.Clone(e.types)
}

// runState is the working state of one SyncPools call.
type runState struct {
	run        *store.SyncRun
	working    map[pool.PoolType]map[common.Address]*pool.Pool
	owner      map[common.Address]pool.PoolType
	watermarks map[pool.PoolType]uint64
	openGaps   map[pool.PoolType][]store.Gap
}

// SyncPools brings every pool type up to the chain head and returns all pools of the
// configured types, ordered by address, together with the block their state is valid
// at: the last head it synced to, or the lowest stored watermark when the node is behind.
// Progress is persisted per pool type, so a failed call can simply be retried.
func (e *PoolSync) SyncPools(ctx context.Context) (_ []*pool.Pool, _ uint64, err error) {
	start := time.Now()

	if !e.verified {
		if err := e.syncer.VerifyChain(ctx); err != nil {
			return nil, 0, err
		}
		e.verified = true
	}

	// drop anything a previous aborted call left behind
	e.gaps.Drain()

	st := &runState{
		run: &store.SyncRun{
			ID:        uuid.NewString(),
			Chain:     e.chain,
			Status:    store.RunRunning,
			StartedAt: time.Now().UTC(),
		},
	}
	if err := e.db.StartRun(ctx, st.run); err != nil {
		return nil, 0, fmt.Errorf("failed to start sync run: %w", err)
	}
	defer func() { e.finishRun(ctx, st.run, start, err) }()

	if err := e.load(ctx, st); err != nil {
		return nil, 0, err
	}

	var head uint64
	for pass := 0; ; pass++ {
		h, err := e.syncer.BlockNumber(ctx)
		if err != nil {
			return nil, 0, err
		}
		head = h
		st.run.HeadBlock = h

		behind := false
		for _, t := range e.types {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}

			w := st.watermarks[t]
			pendingGaps := pass == 0 && len(st.openGaps[t]) > 0
			if w >= h && !pendingGaps {
				continue
			}
			behind = true

			if err := e.syncPoolType(ctx, st, t, w, h, pass == 0); err != nil {
				return nil, 0, fmt.Errorf("sync %s: %w", t, err)
			}
		}

		if !behind {
			break
		}
	}

	// a node behind the stored progress does not roll the reported block back
	synced := st.watermarks[e.types[0]]
	for _, t := range e.types[1:] {
		synced = min(synced, st.watermarks[t])
	}
	head = max(head, synced)

	pools := st.flatten()
	st.run.PoolCount = len(pools)

	e.log.Infow("pools synchronized",
		"chain", e.chain,
		"head", head,
		"pools", len(pools),
		"new_pools", st.run.NewPools,
		"gaps", st.run.Gaps,
		"elapsed", time.Since(start),
	)

	return pools, head, nil
}

func (e *PoolSync) load(ctx context.Context, st *runState) error {
	// every stored pool of the chain takes part in the cross type ownership check,
	// including pools of types this engine does not sync
	stored, err := e.db.LoadPools(ctx, e.chain, nil)
	if err != nil {
		return fmt.Errorf("failed to load pools: %w", err)
	}

	st.working = make(map[pool.PoolType]map[common.Address]*pool.Pool, len(e.types))
	for _, t := range e.types {
		st.working[t] = make(map[common.Address]*pool.Pool)
	}

	st.owner = make(map[common.Address]pool.PoolType, len(stored))
	for _, p := range stored {
		st.owner[p.Address] = p.Type
		if set, ok := st.working[p.Type]; ok {
			set[p.Address] = p
		}
	}

	marks, err := e.db.Watermarks(ctx, e.chain)
	if err != nil {
		return fmt.Errorf("failed to load watermarks: %w", err)
	}

	st.watermarks = make(map[pool.PoolType]uint64, len(e.types))
	st.openGaps = make(map[pool.PoolType][]store.Gap, len(e.types))
	for _, t := range e.types {
		st.watermarks[t] = marks[t]
		metrics.WatermarkSet(t.String(), marks[t])
		metrics.PoolsTrackedSet(t.String(), len(st.working[t]))

		gaps, err := e.db.UnresolvedGaps(ctx, e.chain, t, syncer.GapDiscovery)
		if err != nil {
			return fmt.Errorf("failed to load gaps of %s: %w", t, err)
		}
		st.openGaps[t] = gaps
	}

	e.log.Debugw("sync state loaded", "pools", len(stored), "watermarks", st.watermarks)

	return nil
}

// syncPoolType processes one pool type with watermark w up to head h.
//
// Blocks [0, w] are processed when w > 0 and none are when w == 0, so the regular
// update covers [w+1, h] (or [0, h]) and new pools are backfilled over [0, w].
func (e *PoolSync) syncPoolType(ctx context.Context, st *runState, t pool.PoolType, w, h uint64, firstPass bool) error {
	passStart := time.Now()

	start := w + 1
	if w == 0 {
		start = 0
	}
	lowest := start
	gapMark := e.gaps.Len()

	var discovered []common.Address
	if start <= h {
		addrs, err := e.syncer.FetchAddresses(ctx, t, start, h)
		if err != nil {
			return err
		}
		discovered = append(discovered, addrs...)
	}

	var resolved []store.Gap
	if firstPass {
		// a gap whose re-run fails again stays open and keeps its row
		var stillOpen []store.Gap
		for _, g := range st.openGaps[t] {
			before := e.gaps.Len()
			addrs, err := e.syncer.FetchAddresses(ctx, t, g.Range.From, g.Range.To)
			if err != nil {
				return err
			}
			discovered = append(discovered, addrs...)
			lowest = min(lowest, g.Range.From)

			if e.gaps.Len() == before {
				resolved = append(resolved, g)
			} else {
				stillOpen = append(stillOpen, g)
			}
		}
		st.openGaps[t] = stillOpen
	}

	fresh := e.freshAddresses(st, t, discovered)
	if len(fresh) > 0 {
		built, err := e.syncer.PopulatePoolInfo(ctx, t, fresh, h)
		if err != nil {
			return err
		}

		if w > 0 && len(built) > 0 {
			backfill := make(map[common.Address]*pool.Pool, len(built))
			for _, p := range built {
				backfill[p.Address] = p
			}
			if _, err := e.syncer.PopulateLiquidity(ctx, t, backfill, 0, w, true); err != nil {
				return err
			}
		}

		if err := e.db.SavePools(ctx, e.chain, built); err != nil {
			return fmt.Errorf("failed to save new pools: %w", err)
		}

		for _, p := range built {
			st.working[t][p.Address] = p
			st.owner[p.Address] = t
		}
		st.run.NewPools += len(built)
		metrics.NewPoolsAdd(t.String(), len(built))

		e.log.Infow("new pools added", "pool_type", t, "discovered", len(fresh), "built", len(built))
	}

	if start <= h && len(st.working[t]) > 0 {
		touched, err := e.syncer.PopulateLiquidity(ctx, t, st.working[t], start, h, false)
		if err != nil {
			return err
		}

		if len(touched) > 0 {
			updated := make([]*pool.Pool, 0, len(touched))
			for _, addr := range touched {
				updated = append(updated, st.working[t][addr])
			}
			if err := e.db.SavePools(ctx, e.chain, updated); err != nil {
				return fmt.Errorf("failed to save updated pools: %w", err)
			}
		}

		e.log.Debugw("liquidity updated", "pool_type", t, "from", start, "to", h, "touched", len(touched))
	}

	if err := e.persistGaps(ctx, st, t, syncer.BlockRange{From: lowest, To: h}, resolved, gapMark); err != nil {
		return err
	}

	if h > w {
		if err := e.db.UpdateLastProcessedBlock(ctx, e.chain, t, h); err != nil {
			return fmt.Errorf("failed to update last processed block: %w", err)
		}
		st.watermarks[t] = h
		metrics.WatermarkSet(t.String(), h)
		metrics.BlocksProcessedAdd(t.String(), h-w)
	}

	metrics.PoolsTrackedSet(t.String(), len(st.working[t]))
	metrics.PassDurationLog(t.String(), time.Since(passStart))

	e.log.Infow("pool type synchronized",
		"pool_type", t,
		"from", start,
		"to", h,
		"pools", len(st.working[t]),
		"elapsed", time.Since(passStart),
	)

	return nil
}

// freshAddresses de-duplicates discovered addresses and drops the ones already known.
func (e *PoolSync) freshAddresses(st *runState, t pool.PoolType, discovered []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(discovered))
	fresh := make([]common.Address, 0, len(discovered))

	for _, addr := range discovered {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		owner, known := st.owner[addr]
		switch {
		case !known:
			fresh = append(fresh, addr)
		case owner != t:
			metrics.PoolConflictInc(t.String())
			e.log.Warnw("pool address already belongs to another pool type, skipping",
				"address", addr.Hex(), "pool_type", t, "owner", owner)
		}
	}

	return fresh
}

// persistGaps stores the gaps reported since mark and resolves re-run gaps.
// Pool info failures are stored as discovery gaps over discovered, so the next run
// finds the affected pools again. A report inside a gap that is still open is not
// stored again, and a re-run gap reported again with the same range stays open.
func (e *PoolSync) persistGaps(
	ctx context.Context,
	st *runState,
	t pool.PoolType,
	discovered syncer.BlockRange,
	resolved []store.Gap,
	mark int,
) error {
	reported := e.gaps.Drain()
	if mark < len(reported) {
		reported = reported[mark:]
	} else {
		reported = nil
	}

	now := time.Now().UTC()
	for _, g := range reported {
		gap := &store.Gap{
			Chain:     e.chain,
			PoolType:  g.PoolType,
			Kind:      g.Kind,
			Range:     g.Range,
			Reason:    g.Reason,
			CreatedAt: now,
		}
		if g.Kind == syncer.GapPoolInfo {
			gap.Kind = syncer.GapDiscovery
			gap.Range = discovered
			gap.Reason = fmt.Sprintf("pool info at block %d: %s", g.Range.To, g.Reason)
		}

		if gap.Kind == syncer.GapDiscovery {
			if coveredBy(st.openGaps[gap.PoolType], gap.Range) >= 0 {
				e.log.Debugw("gap already open", "pool_type", t, "range", gap.Range.String())
				continue
			}
			if i := sameRange(resolved, gap.Range); i >= 0 {
				st.openGaps[gap.PoolType] = append(st.openGaps[gap.PoolType], resolved[i])
				resolved = slices.Delete(resolved, i, i+1)
				e.log.Debugw("gap still failing", "pool_type", t, "range", gap.Range.String())
				continue
			}
		}

		if err := e.db.RecordGap(ctx, gap); err != nil {
			return fmt.Errorf("failed to record gap: %w", err)
		}
		st.run.Gaps++
		metrics.GapRecordedInc(t.String(), string(gap.Kind))

		if gap.Kind == syncer.GapDiscovery {
			st.openGaps[gap.PoolType] = append(st.openGaps[gap.PoolType], *gap)
		}

		e.log.Warnw("gap recorded",
			"pool_type", t,
			"kind", gap.Kind,
			"range", gap.Range.String(),
			"reason", gap.Reason,
		)
	}

	for _, g := range resolved {
		if err := e.db.ResolveGap(ctx, g.ID); err != nil {
			return fmt.Errorf("failed to resolve gap %d: %w", g.ID, err)
		}
		metrics.GapResolvedInc(t.String())
		e.log.Infow("gap resolved", "pool_type", t, "range", g.Range.String())
	}

	return nil
}

// coveredBy returns the index of the first gap whose range contains r, or -1.
func coveredBy(gaps []store.Gap, r syncer.BlockRange) int {
	return slices.IndexFunc(gaps, func(g store.Gap) bool { return g.Range.Contains(r) })
}

func sameRange(gaps []store.Gap, r syncer.BlockRange) int {
	return slices.IndexFunc(gaps, func(g store.Gap) bool { return g.Range == r })
}

func (e *PoolSync) finishRun(ctx context.Context, run *store.SyncRun, start time.Time, runErr error) {
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = store.RunSucceeded
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}

	metrics.SyncRunLog(string(run.Status), time.Since(start))

	// the run is recorded even when ctx was cancelled
	if err := e.db.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		e.log.Errorw("failed to finish sync run", "run", run.ID, "error", err)
	}
}

func (st *runState) flatten() []*pool.Pool {
	var pools []*pool.Pool
	for _, set := range st.working {
		pools = slices.AppendSeq(pools, maps.Values(set))
	}
	slices.SortFunc(pools, func(a, b *pool.Pool) int {
		return a.Address.Cmp(b.Address)
	})
	return pools
}

// Run calls SyncPools every interval until ctx is cancelled. Provider failures are
// logged and retried on the next tick; any other error stops the loop.
func (e *PoolSync) Run(ctx context.Context, interval time.Duration) error {
	e.log.Infow("follow mode started", "chain", e.chain, "interval", interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("follow mode stopped")
			return nil
		case <-timer.C:
		}

		_, head, err := e.SyncPools(ctx)
		switch {
		case err == nil:
			e.log.Debugw("sync pass done", "head", head)
		case ctx.Err() != nil:
			e.log.Info("follow mode stopped")
			return nil
		case errors.Is(err, syncer.ErrProvider):
			e.log.Warnw("sync failed, retrying on next tick", "error", err)
		default:
			return err
		}

		timer.Reset(interval)
	}
}
