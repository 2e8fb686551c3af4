package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// GetEthPriceInUSD averages the reference token price over the configured stable pairs, each pair
// weighted by its stablecoin reserve.
func (s *Subgraph) GetEthPriceInUSD() (decimal.Decimal, error) {
	weighted := zeroBD
	totalStable := zeroBD

	for _, pairAddress := range s.Chain.StableTokenPairs {
		pair := entity.NewPair(pairAddress)
		if err := s.Load(pair); err != nil {
			return zeroBD, fmt.Errorf("loading stable pair %s: %w", pairAddress, err)
		}
		if !pair.Exists() {
			continue
		}

		var stableToken string
		var stableReserve, price decimal.Decimal
		switch s.Chain.ReferenceToken {
		case pair.Token1:
			stableToken, stableReserve, price = pair.Token0, pair.Reserve0, pair.Token0Price
		case pair.Token0:
			stableToken, stableReserve, price = pair.Token1, pair.Reserve1, pair.Token1Price
		default:
			s.Log.Warn("stable pair does not hold the reference token", zap.String("pair", pair.ID))
			continue
		}

		if len(s.Chain.Stablecoins) > 0 && !s.Chain.IsStablecoin(stableToken) {
			s.Log.Warn("stable pair counter token is not a stablecoin", zap.String("pair", pair.ID), zap.String("token", stableToken))
			continue
		}

		if stableReserve.IsZero() || pair.Reserve0.IsZero() || pair.Reserve1.IsZero() {
			continue
		}

		weighted = weighted.Add(price.Mul(stableReserve))
		totalStable = totalStable.Add(stableReserve)
	}

	return safeDiv(weighted, totalStable), nil
}

// FindEthPerToken prices a token in reference token units through its whitelisted pair holding the
// most reference-equivalent liquidity above the configured minimum.
func (s *Subgraph) FindEthPerToken(tokenAddress string) (decimal.Decimal, error) {
	if tokenAddress == s.Chain.ReferenceToken {
		return oneBD, nil
	}

	largestLiquidityETH := zeroBD
	priceSoFar := zeroBD

	for _, ent := range s.GetWhere(entity.TablePairTokenLookup, entity.FieldToken, tokenAddress) {
		lookup := ent.(*entity.PairTokenLookup)

		pair := entity.NewPair(lookup.Pair)
		if err := s.Load(pair); err != nil {
			return zeroBD, fmt.Errorf("loading pair %s: %w", lookup.Pair, err)
		}
		if !pair.Exists() {
			continue
		}

		var counterAddress string
		var counterReserve, ratio decimal.Decimal
		switch tokenAddress {
		case pair.Token0:
			counterAddress, counterReserve, ratio = pair.Token1, pair.Reserve1, pair.Token1Price
		case pair.Token1:
			counterAddress, counterReserve, ratio = pair.Token0, pair.Reserve0, pair.Token0Price
		default:
			continue
		}

		if !s.Chain.IsWhitelisted(counterAddress) {
			continue
		}

		counter := entity.NewToken(counterAddress)
		if err := s.Load(counter); err != nil {
			return zeroBD, fmt.Errorf("loading token %s: %w", counterAddress, err)
		}
		if !counter.Exists() {
			continue
		}

		liquidityETH := counterReserve.Mul(counter.DerivedETH)
		if liquidityETH.GreaterThan(largestLiquidityETH) && liquidityETH.GreaterThan(s.Chain.MinimumLiquidityThresholdETH) {
			largestLiquidityETH = liquidityETH
			priceSoFar = ratio.Mul(counter.DerivedETH)
		}
	}

	return priceSoFar, nil
}
