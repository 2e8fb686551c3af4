package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/config"
	"github.com/streamingfast/uniswap-v2-indexer/effects"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// StaticEffects answers token metadata and balances from memory.
type StaticEffects struct {
	Metadata map[string]*effects.TokenMetadata
	Balances map[string]*big.Int
}

func NewStaticEffects() *StaticEffects {
	return &StaticEffects{
		Metadata: map[string]*effects.TokenMetadata{},
		Balances: map[string]*big.Int{},
	}
}

func (e *StaticEffects) SetToken(token, symbol string, decimals int64) {
	e.Metadata[token] = &effects.TokenMetadata{
		Symbol:      symbol,
		Name:        symbol,
		Decimals:    big.NewInt(decimals),
		TotalSupply: new(big.Int),
	}
}

func (e *StaticEffects) SetBalance(token, user string, balance *big.Int) {
	e.Balances[token+"/"+user] = balance
}

func (e *StaticEffects) FetchTokenMetadata(_ context.Context, token eth.Address) (*effects.TokenMetadata, error) {
	md, found := e.Metadata[token.Pretty()]
	if !found {
		return &effects.TokenMetadata{Symbol: effects.UnknownSymbol, Name: effects.UnknownName, TotalSupply: new(big.Int)}, nil
	}
	return md, nil
}

func (e *StaticEffects) FetchBalance(_ context.Context, token, user eth.Address) (*big.Int, error) {
	if balance, found := e.Balances[token.Pretty()+"/"+user.Pretty()]; found {
		return balance, nil
	}
	return new(big.Int), nil
}

type RecordingRegistrar struct {
	Pairs []string
}

func (r *RecordingRegistrar) RegisterPair(pair eth.Address) {
	r.Pairs = append(r.Pairs, pair.Pretty())
}

func NewTestSubgraph(t *testing.T, chainYAML string, tokenEffects TokenEffects, opts ...Option) *Subgraph {
	t.Helper()

	chain, err := config.Decode([]byte(chainYAML))
	require.NoError(t, err)

	return New(state.New("test"), chain, tokenEffects, opts...)
}

// TestEvents feeds events through the subgraph, failing the test on the first handler error.
func TestEvents(t *testing.T, s *Subgraph, events []Event) {
	t.Helper()

	for _, event := range events {
		if err := s.HandleEvent(context.Background(), event); err != nil {
			require.NoError(t, err)
		}
	}
}

type storeData struct {
	StoreData []struct {
		Type   string                 `yaml:"type"`
		Entity map[string]interface{} `yaml:"entity"`
	} `yaml:"storeData"`
}

// LoadStoreYAML seeds the store with entities described as
//
//	storeData:
//	  - type: pair
//	    entity:
//	      id: "0x..."
//	      reserve0: "100"
func LoadStoreYAML(t *testing.T, store *state.Store, content string) {
	t.Helper()

	var data storeData
	require.NoError(t, yaml.Unmarshal([]byte(content), &data))

	for _, row := range data.StoreData {
		id := fmt.Sprint(row.Entity["id"])
		raw, err := json.Marshal(row.Entity)
		require.NoError(t, err)

		ent, err := sink.Decode(row.Type, id, raw)
		require.NoError(t, err)
		store.Restore(ent)
	}
}

func mustEntity[T entity.Entity](t *testing.T, store *state.Store, ent T) T {
	t.Helper()
	require.NoError(t, store.Load(ent))
	require.True(t, ent.Exists(), "%s %s not found", ent.TableName(), ent.GetID())
	return ent
}
