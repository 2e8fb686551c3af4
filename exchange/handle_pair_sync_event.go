package exchange

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func (s *Subgraph) HandlePairSyncEvent(_ context.Context, ev *PairSyncEvent) error {
	pair, err := s.loadPair(ev.LogAddress.Pretty())
	if err != nil {
		return err
	}

	token0, token1, err := s.loadPairTokens(pair)
	if err != nil {
		return err
	}

	factory, err := s.loadFactory()
	if err != nil {
		return err
	}

	bundle, err := s.loadBundle()
	if err != nil {
		return err
	}

	s.Log.Debug("handler sync pre dump",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Reflect("pair", pair),
		zap.Reflect("factory", factory),
	)

	// reset factory liquidity by subtracting only tracked liquidity
	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Sub(pair.TrackedReserveETH)

	// reset token total liquidity amounts
	token0.TotalLiquidity = token0.TotalLiquidity.Sub(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Sub(pair.Reserve1)

	pair.Reserve0 = ConvertTokenToDecimal(ev.Reserve0, token0.Decimals)
	pair.Reserve1 = ConvertTokenToDecimal(ev.Reserve1, token1.Decimals)

	// token0Price is the amount of token0 per token1, as the deployed Uniswap v2 subgraph defines it
	pair.Token0Price = safeDiv(pair.Reserve0, pair.Reserve1)
	pair.Token1Price = safeDiv(pair.Reserve1, pair.Reserve0)

	s.Log.Debug("set token prices",
		zap.Stringer("pair.token_0_price", pair.Token0Price),
		zap.Stringer("pair.token_1_price", pair.Token1Price),
	)

	// pricing below reads this pair back from the store
	s.Save(pair)

	ethPrice, err := s.GetEthPriceInUSD()
	if err != nil {
		return fmt.Errorf("eth price: %w", err)
	}
	bundle.EthPrice = ethPrice
	s.Save(bundle)

	derived0, err := s.FindEthPerToken(token0.ID)
	if err != nil {
		return fmt.Errorf("derived eth of token0 %s: %w", token0.ID, err)
	}
	token0.DerivedETH = derived0
	s.Save(token0)

	derived1, err := s.FindEthPerToken(token1.ID)
	if err != nil {
		return fmt.Errorf("derived eth of token1 %s: %w", token1.ID, err)
	}
	token1.DerivedETH = derived1
	s.Save(token1)

	s.Log.Debug("new token prices",
		zap.Stringer("eth_price", ethPrice),
		zap.Stringer("token0", token0.DerivedETH),
		zap.Stringer("token1", token1.DerivedETH),
	)

	// get tracked liquidity - will be 0 if neither is in whitelist
	trackedLiquidityETH := zeroBD
	if ethPrice.IsPositive() {
		trackedLiquidityUSD := s.GetTrackedLiquidityUSD(bundle, pair.Reserve0, token0, pair.Reserve1, token1)
		trackedLiquidityETH = safeDiv(trackedLiquidityUSD, ethPrice)
	}

	// use derived amounts within pair
	pair.TrackedReserveETH = trackedLiquidityETH
	pair.ReserveETH = pair.Reserve0.Mul(token0.DerivedETH).Add(pair.Reserve1.Mul(token1.DerivedETH))
	pair.ReserveUSD = pair.ReserveETH.Mul(ethPrice)
	s.Save(pair)

	// use tracked amounts globally
	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Add(trackedLiquidityETH)
	factory.TotalLiquidityUSD = factory.TotalLiquidityETH.Mul(ethPrice)
	s.Save(factory)

	// now correctly set liquidity amounts for each token
	token0.TotalLiquidity = token0.TotalLiquidity.Add(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Add(pair.Reserve1)
	s.Save(token0)
	s.Save(token1)

	return nil
}
