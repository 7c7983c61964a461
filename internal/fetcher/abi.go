package fetcher

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2ABIJSON = `[
  {"type":"event","name":"PairCreated","anonymous":false,"inputs":[
    {"indexed":true,"name":"token0","type":"address"},
    {"indexed":true,"name":"token1","type":"address"},
    {"indexed":false,"name":"pair","type":"address"},
    {"indexed":false,"name":"","type":"uint256"}]},
  {"type":"event","name":"Sync","anonymous":false,"inputs":[
    {"indexed":false,"name":"reserve0","type":"uint112"},
    {"indexed":false,"name":"reserve1","type":"uint112"}]},
  {"type":"function","name":"token0","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"token1","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getReserves","stateMutability":"view","inputs":[],
   "outputs":[
    {"name":"reserve0","type":"uint112"},
    {"name":"reserve1","type":"uint112"},
    {"name":"blockTimestampLast","type":"uint32"}]}
]`

// slot0 only declares its two leading outputs so the same ABI decodes
// the Uniswap and PancakeSwap layouts.
const v3ABIJSON = `[
  {"type":"event","name":"PoolCreated","anonymous":false,"inputs":[
    {"indexed":true,"name":"token0","type":"address"},
    {"indexed":true,"name":"token1","type":"address"},
    {"indexed":true,"name":"fee","type":"uint24"},
    {"indexed":false,"name":"tickSpacing","type":"int24"},
    {"indexed":false,"name":"pool","type":"address"}]},
  {"type":"event","name":"Mint","anonymous":false,"inputs":[
    {"indexed":false,"name":"sender","type":"address"},
    {"indexed":true,"name":"owner","type":"address"},
    {"indexed":true,"name":"tickLower","type":"int24"},
    {"indexed":true,"name":"tickUpper","type":"int24"},
    {"indexed":false,"name":"amount","type":"uint128"},
    {"indexed":false,"name":"amount0","type":"uint256"},
    {"indexed":false,"name":"amount1","type":"uint256"}]},
  {"type":"event","name":"Burn","anonymous":false,"inputs":[
    {"indexed":true,"name":"owner","type":"address"},
    {"indexed":true,"name":"tickLower","type":"int24"},
    {"indexed":true,"name":"tickUpper","type":"int24"},
    {"indexed":false,"name":"amount","type":"uint128"},
    {"indexed":false,"name":"amount0","type":"uint256"},
    {"indexed":false,"name":"amount1","type":"uint256"}]},
  {"type":"event","name":"Swap","anonymous":false,"inputs":[
    {"indexed":true,"name":"sender","type":"address"},
    {"indexed":true,"name":"recipient","type":"address"},
    {"indexed":false,"name":"amount0","type":"int256"},
    {"indexed":false,"name":"amount1","type":"int256"},
    {"indexed":false,"name":"sqrtPriceX96","type":"uint160"},
    {"indexed":false,"name":"liquidity","type":"uint128"},
    {"indexed":false,"name":"tick","type":"int24"}]},
  {"type":"function","name":"token0","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"token1","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"fee","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint24"}]},
  {"type":"function","name":"tickSpacing","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"int24"}]},
  {"type":"function","name":"liquidity","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint128"}]},
  {"type":"function","name":"slot0","stateMutability":"view","inputs":[],
   "outputs":[
    {"name":"sqrtPriceX96","type":"uint160"},
    {"name":"tick","type":"int24"}]}
]`

// PancakeSwap V3 appends the protocol fees to Swap, which changes its topic.
const pancakeV3SwapABIJSON = `[
  {"type":"event","name":"Swap","anonymous":false,"inputs":[
    {"indexed":true,"name":"sender","type":"address"},
    {"indexed":true,"name":"recipient","type":"address"},
    {"indexed":false,"name":"amount0","type":"int256"},
    {"indexed":false,"name":"amount1","type":"int256"},
    {"indexed":false,"name":"sqrtPriceX96","type":"uint160"},
    {"indexed":false,"name":"liquidity","type":"uint128"},
    {"indexed":false,"name":"tick","type":"int24"},
    {"indexed":false,"name":"protocolFeesToken0","type":"uint128"},
    {"indexed":false,"name":"protocolFeesToken1","type":"uint128"}]}
]`

const balancerABIJSON = `[
  {"type":"event","name":"PoolRegistered","anonymous":false,"inputs":[
    {"indexed":true,"name":"poolId","type":"bytes32"},
    {"indexed":true,"name":"poolAddress","type":"address"},
    {"indexed":false,"name":"specialization","type":"uint8"}]},
  {"type":"function","name":"getPoolId","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getVault","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getNormalizedWeights","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getPoolTokens","stateMutability":"view",
   "inputs":[{"name":"poolId","type":"bytes32"}],
   "outputs":[
    {"name":"tokens","type":"address[]"},
    {"name":"balances","type":"uint256[]"},
    {"name":"lastChangeBlock","type":"uint256"}]}
]`

var (
	v2ABI, v3ABI, pancakeV3SwapABI, balancerABI abi.ABI
	abiOnce                                     sync.Once
)

func loadABIs() {
	abiOnce.Do(func() {
		v2ABI = mustParseABI(v2ABIJSON)
		v3ABI = mustParseABI(v3ABIJSON)
		pancakeV3SwapABI = mustParseABI(pancakeV3SwapABIJSON)
		balancerABI = mustParseABI(balancerABIJSON)
	})
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
