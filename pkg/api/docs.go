// Package api provides the read-only REST API over synced pools
// @title PoolSync API
// @version 1.0
// @description REST API for querying liquidity pools synced by PoolSync
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/PoolSync
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
