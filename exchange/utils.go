package exchange

import (
	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
)

// liquidity providers below which a pair must hold MinimumUSDThresholdNewPairs of whitelisted reserves
// before its volume counts as tracked
const newPairLiquidityProviderCount = 5

// GetTrackedVolumeUSD values a swap through its whitelisted side(s) only.
func (s *Subgraph) GetTrackedVolumeUSD(bundle *entity.Bundle, tokenAmount0 decimal.Decimal, token0 *entity.Token, tokenAmount1 decimal.Decimal, token1 *entity.Token, pair *entity.Pair) decimal.Decimal {
	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	token0Whitelisted := s.Chain.IsWhitelisted(token0.ID)
	token1Whitelisted := s.Chain.IsWhitelisted(token1.ID)

	if pair != nil && pair.LiquidityProviderCount < newPairLiquidityProviderCount {
		reserve0USD := pair.Reserve0.Mul(price0)
		reserve1USD := pair.Reserve1.Mul(price1)
		threshold := s.Chain.MinimumUSDThresholdNewPairs

		switch {
		case token0Whitelisted && token1Whitelisted:
			if reserve0USD.Add(reserve1USD).LessThan(threshold) {
				return zeroBD
			}
		case token0Whitelisted:
			if reserve0USD.Mul(twoBD).LessThan(threshold) {
				return zeroBD
			}
		case token1Whitelisted:
			if reserve1USD.Mul(twoBD).LessThan(threshold) {
				return zeroBD
			}
		}
	}

	// both are whitelist tokens, take average of both amounts
	if token0Whitelisted && token1Whitelisted {
		sum := tokenAmount0.Mul(price0).Add(tokenAmount1.Mul(price1))
		return safeDiv(sum, twoBD)
	}

	// take full value of the whitelisted token amount
	if token0Whitelisted {
		return tokenAmount0.Mul(price0)
	}
	if token1Whitelisted {
		return tokenAmount1.Mul(price1)
	}

	// neither token is on white list, tracked volume is 0
	return zeroBD
}

// GetTrackedLiquidityUSD values reserves through their whitelisted side(s) only.
func (s *Subgraph) GetTrackedLiquidityUSD(bundle *entity.Bundle, tokenAmount0 decimal.Decimal, token0 *entity.Token, tokenAmount1 decimal.Decimal, token1 *entity.Token) decimal.Decimal {
	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	token0Whitelisted := s.Chain.IsWhitelisted(token0.ID)
	token1Whitelisted := s.Chain.IsWhitelisted(token1.ID)

	if token0Whitelisted && token1Whitelisted {
		return tokenAmount0.Mul(price0).Add(tokenAmount1.Mul(price1))
	}

	// take double value of the whitelisted token amount
	if token0Whitelisted {
		return tokenAmount0.Mul(price0).Mul(twoBD)
	}
	if token1Whitelisted {
		return tokenAmount1.Mul(price1).Mul(twoBD)
	}

	return zeroBD
}

// derivedVolumeETH values a swap through both tokens' derived prices, whitelisted or not. When one leg
// is negligible the other is used as is instead of being halved.
func derivedVolumeETH(amount0 decimal.Decimal, token0 *entity.Token, amount1 decimal.Decimal, token1 *entity.Token) decimal.Decimal {
	leg0 := token0.DerivedETH.Mul(amount0)
	leg1 := token1.DerivedETH.Mul(amount1)

	if leg0.LessThanOrEqual(almostZeroBD) || leg1.LessThanOrEqual(almostZeroBD) {
		return leg0.Add(leg1)
	}
	return safeDiv(leg0.Add(leg1), twoBD)
}
