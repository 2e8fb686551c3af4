package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// swapVolumes are the per-period deltas a swap adds on top of the bucket refresh.
type swapVolumes struct {
	amount0Total decimal.Decimal
	amount1Total decimal.Decimal
	trackedUSD   decimal.Decimal
	trackedETH   decimal.Decimal
	derivedUSD   decimal.Decimal
	fees0USD     decimal.Decimal
	fees1USD     decimal.Decimal
}

func (s *Subgraph) HandlePairSwapEvent(_ context.Context, ev *PairSwapEvent) error {
	s.Log.Debug("handling swap event",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Stringer("trx_hash", ev.Transaction.Hash),
		zap.Stringer("pair", ev.LogAddress),
	)

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

	amount0In := ConvertTokenToDecimal(ev.Amount0In, token0.Decimals)
	amount1In := ConvertTokenToDecimal(ev.Amount1In, token1.Decimals)
	amount0Out := ConvertTokenToDecimal(ev.Amount0Out, token0.Decimals)
	amount1Out := ConvertTokenToDecimal(ev.Amount1Out, token1.Decimals)

	// totals for volume updates
	amount0Total := amount0In.Add(amount0Out)
	amount1Total := amount1In.Add(amount1Out)

	ethPrice := bundle.EthPrice
	price0USD := token0.DerivedETH.Mul(ethPrice)
	price1USD := token1.DerivedETH.Mul(ethPrice)

	// only accounts for volume through whitelisted tokens
	trackedAmountUSD := s.GetTrackedVolumeUSD(bundle, amount0Total, token0, amount1Total, token1, pair)
	trackedAmountETH := safeDiv(trackedAmountUSD, ethPrice)

	derivedAmountETH := derivedVolumeETH(amount0Total, token0, amount1Total, token1)
	derivedAmountUSD := derivedAmountETH.Mul(ethPrice)

	fees0USD := amount0In.Mul(price0USD).Mul(s.Chain.FeePercent)
	fees1USD := amount1In.Mul(price1USD).Mul(s.Chain.FeePercent)

	token0.TradeVolume = token0.TradeVolume.Add(amount0Total)
	token0.TradeVolumeUSD = token0.TradeVolumeUSD.Add(trackedAmountUSD)
	token0.UntrackedVolumeUSD = token0.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token0.FeesUSD = token0.FeesUSD.Add(fees0USD)
	token0.PriceUSD = price0USD
	token0.TxCount++

	token1.TradeVolume = token1.TradeVolume.Add(amount1Total)
	token1.TradeVolumeUSD = token1.TradeVolumeUSD.Add(trackedAmountUSD)
	token1.UntrackedVolumeUSD = token1.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token1.FeesUSD = token1.FeesUSD.Add(fees1USD)
	token1.PriceUSD = price1USD
	token1.TxCount++

	pair.VolumeUSD = pair.VolumeUSD.Add(trackedAmountUSD)
	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0Total)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1Total)
	pair.UntrackedVolumeUSD = pair.UntrackedVolumeUSD.Add(derivedAmountUSD)
	pair.TxCount++
	pair.SwapCount++

	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedAmountUSD)
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedAmountETH)
	factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(derivedAmountUSD)
	factory.TxCount++

	s.Save(pair)
	s.Save(token0)
	s.Save(token1)
	s.Save(factory)

	trx, err := s.getOrCreateTransaction(ev.Base())
	if err != nil {
		return err
	}

	swaps := s.GetWhereIDs(entity.TableSwap, entity.FieldTransaction, trx.ID)

	swap := entity.NewSwap(entity.IndexedID(trx.ID, len(swaps)))
	swap.Transaction = trx.ID
	swap.Timestamp = ev.Block.Timestamp.Unix()
	swap.Pair = pair.ID
	swap.Sender = ev.Sender.Pretty()
	swap.From = swap.Sender
	if len(ev.Transaction.From) != 0 {
		swap.From = ev.Transaction.From.Pretty()
	}
	swap.Amount0In = amount0In
	swap.Amount1In = amount1In
	swap.Amount0Out = amount0Out
	swap.Amount1Out = amount1Out
	swap.To = ev.To.Pretty()
	swap.LogIndex = ev.LogIndex
	// use the tracked amount if we have it
	swap.AmountUSD = derivedAmountUSD
	if trackedAmountUSD.IsPositive() {
		swap.AmountUSD = trackedAmountUSD
	}
	s.Save(swap)

	trx.SwapCount = uint64(len(swaps) + 1)
	s.Save(trx)

	return s.updateBuckets(ev.Base(), pair, factory, bundle, token0, token1, &swapVolumes{
		amount0Total: amount0Total,
		amount1Total: amount1Total,
		trackedUSD:   trackedAmountUSD,
		trackedETH:   trackedAmountETH,
		derivedUSD:   derivedAmountUSD,
		fees0USD:     fees0USD,
		fees1USD:     fees1USD,
	})
}
