package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/internal/config"
	_ "github.com/goran-ethernal/PoolSync/internal/fetcher" // registers built-in pool fetchers
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/internal/metrics"
	"github.com/goran-ethernal/PoolSync/pkg/api"
	"github.com/goran-ethernal/PoolSync/pkg/fetcher"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
	"github.com/goran-ethernal/PoolSync/pkg/store"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║             PoolSync v%s               ║
║      Liquidity Pool Sync Engine           ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	follow     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poolsync",
	Short: "PoolSync - liquidity pool sync engine",
	Long: `PoolSync discovers AMM liquidity pools from factory events, reads their
on-chain state and keeps it current by replaying liquidity events into a
persistent pool database.`,
	Version: version,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize pools up to the chain head",
	Long: `Run one sync pass for every configured pool type. With --follow the
pass is repeated every poll interval until interrupted.`,
	RunE: runSync,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported pool types",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POOL TYPE\tFAMILY\tCHAINS")
		for _, t := range fetcher.ListRegistered() {
			f, err := fetcher.Create(t, logger.NewNopLogger())
			if err != nil {
				continue
			}
			var chains []pool.Chain
			for _, c := range pool.AllChains() {
				if _, ok := f.FactoryAddress(c); ok {
					chains = append(chains, c)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%v\n", t, t.Family(), chains)
		}
		_ = w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermarks, pool counts and the last sync run",
	RunE:  runStatus,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	syncCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep syncing every poll interval")

	rootCmd.AddCommand(syncCmd, listCmd, statusCmd, schemaCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSync(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentPoolSync, cfg.Logging)
	chain := cfg.ParsedChain()
	types := cfg.Sync.ParsedPoolTypes()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(gctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.WithoutCancel(ctx)); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	if err := app.maintenance.Start(gctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}

	if follow && cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, app.db, chain, types,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging))
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}

	g.Go(func() error {
		// stop the API server once syncing ends
		defer cancel()

		if follow {
			return app.engine.Run(gctx, cfg.Sync.PollInterval.Duration)
		}

		pools, head, err := app.engine.SyncPools(gctx)
		if err != nil {
			return err
		}
		log.Infow("sync complete", "chain", chain, "head", head, "pools", len(pools))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("\nPoolSync stopped")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	chain := cfg.ParsedChain()

	marks, err := db.Watermarks(ctx, chain)
	if err != nil {
		return err
	}
	counts, err := db.CountPools(ctx, chain)
	if err != nil {
		return err
	}

	types := cfg.Sync.ParsedPoolTypes()
	for t := range counts {
		if _, ok := marks[t]; !ok {
			marks[t] = 0
		}
	}
	for t := range marks {
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	pool.SortPoolTypes(types)

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "chain: %s\n\n", chain)
	fmt.Fprintln(w, "POOL TYPE\tLAST BLOCK\tPOOLS")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%d\t%d\n", t, marks[t], counts[t])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	run, err := db.LastRun(ctx, chain)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(out, "\nno sync runs recorded")
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "\nlast run %s: %s at head %d, %d pools (%d new), %d gaps\n",
			run.ID, run.Status, run.HeadBlock, run.PoolCount, run.NewPools, run.Gaps)
		if run.Error != "" {
			fmt.Fprintf(out, "error: %s\n", run.Error)
		}
	}

	return nil
}
