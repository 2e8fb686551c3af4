package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// seed liquidity permanently locked by the pair on its first mint
var minimumLiquidity = big.NewInt(1000)

func (s *Subgraph) HandlePairTransferEvent(ctx context.Context, ev *PairTransferEvent) error {
	s.Log.Debug("handling transfer event",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Stringer("trx_hash", ev.Transaction.Hash),
		zap.Stringer("from", ev.From),
		zap.Stringer("to", ev.To),
		zap.Stringer("value", ev.Value),
	)

	from := ev.From.Pretty()
	to := ev.To.Pretty()

	// ignore initial transfers for first adds
	if to == ZeroAddress && ev.Value.Cmp(minimumLiquidity) == 0 {
		return nil
	}

	if _, err := s.loadFactory(); err != nil {
		return err
	}

	pair, err := s.loadPair(ev.LogAddress.Pretty())
	if err != nil {
		return err
	}

	if err := s.ensureUser(from); err != nil {
		return err
	}
	if err := s.ensureUser(to); err != nil {
		return err
	}

	// liquidity token amount being transferred
	value := ConvertTokenToDecimal(ev.Value, 18)

	trx, err := s.getOrCreateTransaction(ev.Base())
	if err != nil {
		return err
	}

	timestamp := ev.Block.Timestamp.Unix()

	// mints
	if from == ZeroAddress {
		pair.TotalSupply = pair.TotalSupply.Add(value)
		s.Save(pair)

		mints := s.GetWhere(entity.TableMint, entity.FieldTransaction, trx.ID)

		// create new mint if no mints so far or if last one is done already
		if len(mints) == 0 || mints[len(mints)-1].(*entity.Mint).IsComplete() {
			mint := entity.NewProvisionalMint(entity.IndexedID(trx.ID, len(mints)), trx.ID, pair.ID, to, value, timestamp, ev.LogIndex)
			s.Save(mint)

			trx.MintCount = uint64(len(mints) + 1)
			s.Save(trx)
		}
	}

	// case where direct send first on native currency withdrawals
	if to == pair.ID {
		burns := s.GetWhere(entity.TableBurn, entity.FieldTransaction, trx.ID)

		burn := entity.NewProvisionalBurn(entity.IndexedID(trx.ID, len(burns)), trx.ID, pair.ID, value, timestamp, ev.LogIndex)
		burn.Sender = &from
		burn.To = &to
		burn.NeedsComplete = true
		s.Save(burn)

		trx.BurnCount = uint64(len(burns) + 1)
		s.Save(trx)
	}

	// burn
	if to == ZeroAddress && from == pair.ID {
		pair.TotalSupply = pair.TotalSupply.Sub(value)
		s.Save(pair)

		burns := s.GetWhere(entity.TableBurn, entity.FieldTransaction, trx.ID)

		var burn *entity.Burn
		if len(burns) > 0 && burns[len(burns)-1].(*entity.Burn).NeedsComplete {
			burn = burns[len(burns)-1].(*entity.Burn)
			burn.NeedsComplete = false
		} else {
			burn = entity.NewProvisionalBurn(entity.IndexedID(trx.ID, len(burns)), trx.ID, pair.ID, value, timestamp, ev.LogIndex)
			burn.To = &to
			trx.BurnCount = uint64(len(burns) + 1)
		}

		// an incomplete mint here is the protocol fee mint of this burn transaction
		if mint := s.lastMint(trx.ID); mint != nil && !mint.IsComplete() {
			burn.FoldFeeMint(mint)
			s.DeleteUnsafe(entity.TableMint, mint.ID)
			trx.MintCount--

			s.Log.Debug("folded fee mint into burn", zap.String("mint", mint.ID), zap.String("burn", burn.ID))
		}

		s.Save(burn)
		s.Save(trx)
	}

	for _, user := range []string{from, to} {
		if user == ZeroAddress || user == pair.ID {
			continue
		}
		if err := s.refreshLiquidityPosition(ctx, ev.Base(), pair.ID, user); err != nil {
			return fmt.Errorf("liquidity position of %s: %w", user, err)
		}
	}

	return nil
}
