package exchange

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/effects"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type panickingEffects struct{}

func (panickingEffects) FetchTokenMetadata(context.Context, eth.Address) (*effects.TokenMetadata, error) {
	panic("boom")
}

func (panickingEffects) FetchBalance(context.Context, eth.Address, eth.Address) (*big.Int, error) {
	panic("boom")
}

type recordingSink struct {
	cursors []sink.Cursor
	deltas  [][]*state.Delta
	err     error
}

func (r *recordingSink) Apply(_ context.Context, cursor sink.Cursor, deltas []*state.Delta) error {
	if r.err != nil {
		return r.err
	}
	r.cursors = append(r.cursors, cursor)
	r.deltas = append(r.deltas, deltas)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func TestHandleEvent_RecoversPanic(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, panickingEffects{})

	err := sg.HandleEvent(context.Background(), pairCreated(1, testTokenA, testWETH, testPairAW))

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "boom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRuntime_SkipsFailedEvents(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, panickingEffects{})
	rt := NewRuntime(sg, &recordingSink{})

	ctx := context.Background()
	assert.NoError(t, rt.HandleEvent(ctx, pairCreated(1, testTokenA, testWETH, testPairAW)))
	assert.NoError(t, rt.HandleEvent(ctx, syncEvent(1, 1, 1, testPairAW, wei(1), wei(1))))
}

func TestRuntime_ReturnsContextErrors(t *testing.T) {
	fx := NewStaticEffects()
	fx.SetToken(testTokenA, "AAA", 18)
	sg := NewTestSubgraph(t, testChainYAML, &cancelledEffects{StaticEffects: fx})
	rt := NewRuntime(sg, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rt.HandleEvent(ctx, pairCreated(1, testTokenA, testWETH, testPairAW))
	require.ErrorIs(t, err, context.Canceled)
}

type cancelledEffects struct {
	*StaticEffects
}

func (e *cancelledEffects) FetchTokenMetadata(ctx context.Context, token eth.Address) (*effects.TokenMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.StaticEffects.FetchTokenMetadata(ctx, token)
}

func TestRuntime_EndBlockFlushesDeltas(t *testing.T) {
	fx := NewStaticEffects()
	fx.SetToken(testTokenA, "AAA", 18)
	fx.SetToken(testWETH, "WETH", 18)

	sg := NewTestSubgraph(t, testChainYAML, fx)
	rec := &recordingSink{}
	rt := NewRuntime(sg, rec)

	ctx := context.Background()
	created := pairCreated(1, testTokenA, testWETH, testPairAW)
	require.NoError(t, rt.HandleEvent(ctx, created))
	require.NoError(t, rt.EndBlock(ctx, created.Block))

	require.Len(t, rec.cursors, 1)
	assert.Equal(t, uint64(1), rec.cursors[0].BlockNumber)
	assert.Equal(t, created.Block.Hash.Pretty(), rec.cursors[0].BlockHash)

	tables := map[string]int{}
	for _, delta := range rec.deltas[0] {
		tables[delta.Table]++
	}
	assert.Equal(t, 1, tables[entity.TablePair])
	assert.Equal(t, 1, tables[entity.TableFactory])
	assert.Equal(t, 2, tables[entity.TableToken])
	assert.Equal(t, 2, tables[entity.TablePairTokenLookup])

	require.NoError(t, rt.EndBlock(ctx, Block{Number: 2, Hash: testHash(2)}))
	require.Len(t, rec.deltas, 2)
	assert.Empty(t, rec.deltas[1])
}

func TestRuntime_EndBlockLogsStoreDeltas(t *testing.T) {
	fx := NewStaticEffects()
	fx.SetToken(testTokenA, "AAA", 18)
	fx.SetToken(testWETH, "WETH", 18)

	core, logs := observer.New(zap.DebugLevel)
	sg := NewTestSubgraph(t, testChainYAML, fx, WithLogger(zap.New(core)))
	rec := &recordingSink{}
	rt := NewRuntime(sg, rec)

	ctx := context.Background()
	created := pairCreated(1, testTokenA, testWETH, testPairAW)
	require.NoError(t, rt.HandleEvent(ctx, created))
	pending := len(sg.Deltas)
	require.NoError(t, rt.EndBlock(ctx, created.Block))

	assert.Equal(t, pending, logs.FilterMessage("store delta").Len())

	sg.LogStatus()
	status := logs.FilterMessage("subgraph status").All()
	require.Len(t, status, 1)
	assert.Equal(t, "test", status[0].ContextMap()["chain"])
}

func TestRuntime_EndBlockSinkFailure(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())
	rt := NewRuntime(sg, &recordingSink{err: errors.New("db down")})

	err := rt.EndBlock(context.Background(), Block{Number: 7, Hash: testHash(7)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
