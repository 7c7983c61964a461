package fetcher

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
)

// Well known factory deployments. The factory of a type can be overridden
// per deployment in the sync configuration.
var (
	uniswapV2Factories = map[pool.Chain]common.Address{
		pool.Ethereum: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		pool.Base:     common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
	}

	sushiSwapV2Factories = map[pool.Chain]common.Address{
		pool.Ethereum: common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
		pool.Base:     common.HexToAddress("0x71524B4f93c58fcbF659783284E38825f0622859"),
		pool.Arbitrum: common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4"),
		pool.Polygon:  common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4"),
	}

	pancakeSwapV2Factories = map[pool.Chain]common.Address{
		pool.BSC:      common.HexToAddress("0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"),
		pool.Ethereum: common.HexToAddress("0x1097053Fd2ea711dad45caCcc45EfF7548fCB362"),
		pool.Base:     common.HexToAddress("0x02a84c1b3BBD7401a5f7fa98a384EBC70bB5749E"),
	}

	uniswapV3Factories = map[pool.Chain]common.Address{
		pool.Ethereum: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		pool.Arbitrum: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		pool.Optimism: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		pool.Polygon:  common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		pool.Base:     common.HexToAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD"),
	}

	sushiSwapV3Factories = map[pool.Chain]common.Address{
		pool.Ethereum: common.HexToAddress("0xbACEB8eC6b9355Dfc0269C18bac9d6E2Bdc29C4F"),
		pool.Base:     common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4"),
	}

	pancakeSwapV3Factories = map[pool.Chain]common.Address{
		pool.BSC:      common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
		pool.Ethereum: common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
		pool.Base:     common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
		pool.Arbitrum: common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
	}

	balancerVault  = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	balancerVaults   = map[pool.Chain]common.Address{
		pool.Ethereum: balancerVault,
		pool.Polygon:  balancerVault,
		pool.Arbitrum: balancerVault,
		pool.Optimism: balancerVault,
		pool.Base:     balancerVault,
	}
)
