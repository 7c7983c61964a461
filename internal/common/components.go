package common

const (
	ComponentPoolSync    = "pool-sync"
	ComponentSyncer      = "syncer"
	ComponentLogFetcher  = "log-fetcher"
	ComponentPoolFetcher = "pool-fetcher"
	ComponentPoolStore   = "pool-store"
	ComponentMaintenance = "maintenance"
	ComponentRPC         = "rpc"
	ComponentAPI         = "api"
)

var AllComponents = map[string]struct{}{
	ComponentPoolSync:    {},
	ComponentSyncer:      {},
	ComponentLogFetcher:  {},
	ComponentPoolFetcher: {},
	ComponentPoolStore:   {},
	ComponentMaintenance: {},
	ComponentRPC:         {},
	ComponentAPI:         {},
}
