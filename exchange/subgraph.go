package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/config"
	"github.com/streamingfast/uniswap-v2-indexer/effects"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.uber.org/zap"
)

// TokenEffects fetches ERC-20 data the events do not carry.
type TokenEffects interface {
	FetchTokenMetadata(ctx context.Context, token eth.Address) (*effects.TokenMetadata, error)
	FetchBalance(ctx context.Context, token, user eth.Address) (*big.Int, error)
}

// PairRegistrar starts the delivery of a newly created pair's events.
type PairRegistrar interface {
	RegisterPair(pair eth.Address)
}

type Subgraph struct {
	*state.Store

	Chain     *config.Chain
	Effects   TokenEffects
	Registrar PairRegistrar
	Log       *zap.Logger

	// Preload skips the time bucket updates of Mint and Burn.
	Preload bool
}

type Option func(s *Subgraph)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Subgraph) { s.Log = logger }
}

func WithRegistrar(registrar PairRegistrar) Option {
	return func(s *Subgraph) { s.Registrar = registrar }
}

func WithPreload(preload bool) Option {
	return func(s *Subgraph) { s.Preload = preload }
}

func New(store *state.Store, chain *config.Chain, tokenEffects TokenEffects, opts ...Option) *Subgraph {
	s := &Subgraph{
		Store:   store,
		Chain:   chain,
		Effects: tokenEffects,
		Log:     zlog,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Subgraph) LogStatus() {
	s.Log.Info("subgraph status",
		zap.String("chain", s.Chain.Name),
		zap.String("native_currency", s.Chain.NativeCurrency),
		zap.Int("entities", s.Store.Len()),
		zap.Bool("preload", s.Preload),
	)
}

func (s *Subgraph) loadFactory() (*entity.Factory, error) {
	factory := entity.NewFactory(s.Chain.FactoryAddress)
	if err := s.Load(factory); err != nil {
		return nil, fmt.Errorf("loading factory: %w", err)
	}
	if !factory.Exists() {
		return nil, missing(entity.TableFactory, factory.ID)
	}
	return factory, nil
}

func (s *Subgraph) loadBundle() (*entity.Bundle, error) {
	bundle := entity.NewBundle()
	if err := s.Load(bundle); err != nil {
		return nil, fmt.Errorf("loading bundle: %w", err)
	}
	if !bundle.Exists() {
		return nil, missing(entity.TableBundle, bundle.ID)
	}
	return bundle, nil
}

func (s *Subgraph) loadPair(id string) (*entity.Pair, error) {
	pair := entity.NewPair(id)
	if err := s.Load(pair); err != nil {
		return nil, fmt.Errorf("loading pair %s: %w", id, err)
	}
	if !pair.Exists() {
		return nil, missing(entity.TablePair, id)
	}
	return pair, nil
}

func (s *Subgraph) loadToken(id string) (*entity.Token, error) {
	token := entity.NewToken(id)
	if err := s.Load(token); err != nil {
		return nil, fmt.Errorf("loading token %s: %w", id, err)
	}
	if !token.Exists() {
		return nil, missing(entity.TableToken, id)
	}
	return token, nil
}

func (s *Subgraph) loadPairTokens(pair *entity.Pair) (*entity.Token, *entity.Token, error) {
	token0, err := s.loadToken(pair.Token0)
	if err != nil {
		return nil, nil, fmt.Errorf("token0 of pair %s: %w", pair.ID, err)
	}
	token1, err := s.loadToken(pair.Token1)
	if err != nil {
		return nil, nil, fmt.Errorf("token1 of pair %s: %w", pair.ID, err)
	}
	return token0, token1, nil
}

func (s *Subgraph) getOrCreateTransaction(ev *EventBase) (*entity.Transaction, error) {
	trx := entity.NewTransaction(ev.Transaction.Hash.Pretty())
	if err := s.Load(trx); err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", trx.ID, err)
	}
	if !trx.Exists() {
		trx.BlockNumber = ev.Block.Number
		trx.Timestamp = ev.Block.Timestamp.Unix()
		s.Save(trx)
	}
	return trx, nil
}

func (s *Subgraph) ensureUser(address string) error {
	user := entity.NewUser(address)
	if err := s.Load(user); err != nil {
		return fmt.Errorf("loading user %s: %w", address, err)
	}
	if !user.Exists() {
		s.Save(user)
	}
	return nil
}

func (s *Subgraph) lastMint(transaction string) *entity.Mint {
	mints := s.GetWhere(entity.TableMint, entity.FieldTransaction, transaction)
	if len(mints) == 0 {
		return nil
	}
	return mints[len(mints)-1].(*entity.Mint)
}

func (s *Subgraph) lastBurn(transaction string) *entity.Burn {
	burns := s.GetWhere(entity.TableBurn, entity.FieldTransaction, transaction)
	if len(burns) == 0 {
		return nil
	}
	return burns[len(burns)-1].(*entity.Burn)
}
