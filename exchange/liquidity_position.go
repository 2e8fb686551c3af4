package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// getOrCreateLiquidityPosition counts a new liquidity provider on the pair the first time a position
// is opened.
func (s *Subgraph) getOrCreateLiquidityPosition(pairID, user string) (*entity.LiquidityPosition, error) {
	position := entity.NewLiquidityPosition(pairID, user)
	if err := s.Load(position); err != nil {
		return nil, fmt.Errorf("loading liquidity position %s: %w", position.ID, err)
	}
	if position.Exists() {
		return position, nil
	}

	pair, err := s.loadPair(pairID)
	if err != nil {
		return nil, err
	}
	pair.LiquidityProviderCount++
	s.Save(pair)

	position.LiquidityTokenBalance = zeroBD
	s.Save(position)

	return position, nil
}

// refreshLiquidityPosition sets the position to the user's on-chain LP token balance and records a snapshot.
func (s *Subgraph) refreshLiquidityPosition(ctx context.Context, ev *EventBase, pairID, user string) error {
	position, err := s.getOrCreateLiquidityPosition(pairID, user)
	if err != nil {
		return err
	}

	balance, err := s.Effects.FetchBalance(ctx, eth.MustNewAddress(pairID), eth.MustNewAddress(user))
	if err != nil {
		return fmt.Errorf("fetching balance: %w", err)
	}

	position.LiquidityTokenBalance = ConvertTokenToDecimal(balance, 18)
	s.Save(position)

	return s.createLiquiditySnapshot(position, ev)
}

func (s *Subgraph) createLiquiditySnapshot(position *entity.LiquidityPosition, ev *EventBase) error {
	bundle, err := s.loadBundle()
	if err != nil {
		return err
	}

	pair, err := s.loadPair(position.Pair)
	if err != nil {
		return err
	}

	token0, token1, err := s.loadPairTokens(pair)
	if err != nil {
		return err
	}

	timestamp := ev.Block.Timestamp.Unix()
	snapshot := &entity.LiquidityPositionSnapshot{
		Base:                      entity.Base{ID: entity.LiquidityPositionSnapshotID(position.ID, timestamp)},
		LiquidityPosition:         position.ID,
		Timestamp:                 timestamp,
		Block:                     ev.Block.Number,
		User:                      position.User,
		Pair:                      position.Pair,
		Token0PriceUSD:            token0.DerivedETH.Mul(bundle.EthPrice),
		Token1PriceUSD:            token1.DerivedETH.Mul(bundle.EthPrice),
		Reserve0:                  pair.Reserve0,
		Reserve1:                  pair.Reserve1,
		ReserveUSD:                pair.ReserveUSD,
		LiquidityTokenBalance:     position.LiquidityTokenBalance,
		LiquidityTokenTotalSupply: pair.TotalSupply,
	}
	s.Save(snapshot)

	s.Log.Debug("liquidity snapshot",
		zap.String("id", snapshot.ID),
		zap.Stringer("balance", snapshot.LiquidityTokenBalance),
	)

	return nil
}
