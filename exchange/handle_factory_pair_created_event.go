package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/effects"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

func (s *Subgraph) HandleFactoryPairCreatedEvent(ctx context.Context, ev *FactoryPairCreatedEvent) error {
	if s.Registrar != nil {
		s.Registrar.RegisterPair(ev.Pair)
	}

	s.Log.Debug("handling pair created event",
		zap.Uint64("block_num", ev.Block.Number),
		zap.Stringer("pair", ev.Pair),
		zap.Stringer("token0", ev.Token0),
		zap.Stringer("token1", ev.Token1),
	)

	factory := entity.NewFactory(s.Chain.FactoryAddress)
	if err := s.Load(factory); err != nil {
		return fmt.Errorf("loading factory: %w", err)
	}

	bundle := entity.NewBundle()
	if err := s.Load(bundle); err != nil {
		return fmt.Errorf("loading bundle: %w", err)
	}
	if !bundle.Exists() {
		s.Save(bundle)
	}

	token0, err := s.getOrCreateToken(ctx, ev.Token0)
	if err != nil {
		return fmt.Errorf("token0 of pair %s: %w", ev.Pair.Pretty(), err)
	}

	token1, err := s.getOrCreateToken(ctx, ev.Token1)
	if err != nil {
		return fmt.Errorf("token1 of pair %s: %w", ev.Pair.Pretty(), err)
	}

	factory.PairCount++
	s.Save(factory)

	pair := entity.NewPair(ev.Pair.Pretty())
	pair.Token0 = token0.ID
	pair.Token1 = token1.ID
	pair.CreatedAtTimestamp = ev.Block.Timestamp.Unix()
	pair.CreatedAtBlockNumber = ev.Block.Number
	s.Save(pair)

	s.Save(entity.NewPairTokenLookup(token0.ID, pair.ID))
	s.Save(entity.NewPairTokenLookup(token1.ID, pair.ID))

	s.Log.Info("pair created",
		zap.String("pair", pair.ID),
		zap.String("name", fmt.Sprintf("%s-%s", token0.Symbol, token1.Symbol)),
		zap.Uint64("pair_count", factory.PairCount),
	)

	return nil
}

func (s *Subgraph) getOrCreateToken(ctx context.Context, tokenAddress eth.Address) (*entity.Token, error) {
	token := entity.NewToken(tokenAddress.Pretty())
	if err := s.Load(token); err != nil {
		return nil, fmt.Errorf("loading token %s: %w", token.ID, err)
	}

	if token.Exists() {
		return token, nil
	}

	md, err := s.Effects.FetchTokenMetadata(ctx, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata of token %s: %w", token.ID, err)
	}

	if md.Decimals == nil {
		return nil, fmt.Errorf("token %s: %w", token.ID, ErrUnresolvedDecimals)
	}
	if !effects.ValidDecimals(md.Decimals) {
		return nil, fmt.Errorf("token %s reports decimals %s: %w", token.ID, md.Decimals, ErrUnresolvedDecimals)
	}

	token.Symbol = md.Symbol
	token.Name = md.Name
	token.Decimals = md.Decimals.Int64()
	token.TotalSupply = md.TotalSupply
	token.HourArray = []int64{}

	s.Save(token)

	return token, nil
}
