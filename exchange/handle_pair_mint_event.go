package exchange

import (
	"context"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

func (s *Subgraph) HandlePairMintEvent(_ context.Context, ev *PairMintEvent) error {
	s.Log.Debug("handling mint event",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Stringer("trx_hash", ev.Transaction.Hash),
		zap.Stringer("sender", ev.Sender),
	)

	trx := entity.NewTransaction(ev.Transaction.Hash.Pretty())
	if err := s.Load(trx); err != nil {
		return err
	}
	if !trx.Exists() {
		return missing(entity.TableTransaction, trx.ID)
	}

	mint := s.lastMint(trx.ID)
	if mint == nil || mint.IsComplete() {
		return missing(entity.TableMint, entity.IndexedID(trx.ID, int(trx.MintCount)))
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
	pair.MintCount++

	factory.TxCount++

	amountTotalUSD := zeroBD
	if bundle.EthPrice.IsPositive() {
		amountTotalUSD = token1.DerivedETH.Mul(amount1).
			Add(token0.DerivedETH.Mul(amount0)).
			Mul(bundle.EthPrice)
	}

	if err := mint.Complete(entity.Completion{
		Sender:    ev.Sender.Pretty(),
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
	s.Save(mint)

	if s.Preload {
		return nil
	}

	return s.updateBuckets(ev.Base(), pair, factory, bundle, token0, token1, nil)
}
