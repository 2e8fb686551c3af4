package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

func (s *Subgraph) HandlePairBurnEvent(ctx context.Context, ev *PairBurnEvent) error {
	s.Log.Debug("handling burn event",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Stringer("trx_hash", ev.Transaction.Hash),
		zap.Stringer("sender", ev.Sender),
		zap.Stringer("to", ev.To),
	)

	trx := entity.NewTransaction(ev.Transaction.Hash.Pretty())
	if err := s.Load(trx); err != nil {
		return err
	}
	if !trx.Exists() {
		return missing(entity.TableTransaction, trx.ID)
	}

	burn := s.lastBurn(trx.ID)
	if burn == nil || burn.IsComplete() {
		return missing(entity.TableBurn, entity.IndexedID(trx.ID, int(trx.BurnCount)))
	}

	pair, err := s.loadPair(ev.LogAddress.Pretty())
	if err != nil {
		return err
	}

	factory, err := s.loadFactory()
	if err != nil {
		return err
	}

	token0, token1, err := s.loadPairTokens(pair)
	if err != nil {
		return err
	}

	bundle, err := s.loadBundle()
	if err != nil {
		return err
	}

	amount0 := ConvertTokenToDecimal(ev.Amount0, token0.Decimals)
	amount1 := ConvertTokenToDecimal(ev.Amount1, token1.Decimals)

	token0.TxCount++
	token1.TxCount++

	pair.TxCount++
	pair.BurnCount++

	factory.TxCount++

	amountTotalUSD := zeroBD
	if bundle.EthPrice.IsPositive() {
		amountTotalUSD = token1.DerivedETH.Mul(amount1).
			Add(token0.DerivedETH.Mul(amount0)).
			Mul(bundle.EthPrice)
	}

	if err := burn.Complete(entity.Completion{
		Sender:    ev.Sender.Pretty(),
		To:        ev.To.Pretty(),
		Amount0:   amount0,
		Amount1:   amount1,
		AmountUSD: amountTotalUSD,
		LogIndex:  ev.LogIndex,
	}); err != nil {
		return err
	}

	s.Save(token0)
	s.Save(token1)
	s.Save(pair)
	s.Save(factory)
	s.Save(burn)

	if sender := *burn.Sender; sender != ZeroAddress && sender != pair.ID {
		if err := s.refreshLiquidityPosition(ctx, ev.Base(), pair.ID, sender); err != nil {
			return fmt.Errorf("liquidity position of %s: %w", sender, err)
		}

		// a first time position changed the provider count
		if err := s.Load(pair); err != nil {
			return err
		}
	}

	if s.Preload {
		return nil
	}

	return s.updateBuckets(ev.Base(), pair, factory, bundle, token0, token1, nil)
}
