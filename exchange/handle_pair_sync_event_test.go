package exchange

import (
	"context"
	"testing"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPairAWSubgraph(t *testing.T, opts ...Option) (*Subgraph, *StaticEffects) {
	t.Helper()

	fx := NewStaticEffects()
	fx.SetToken(testTokenA, "AAA", 18)
	fx.SetToken(testWETH, "WETH", 18)

	sg := NewTestSubgraph(t, testChainYAML, fx, opts...)
	TestEvents(t, sg, []Event{pairCreated(1, testTokenA, testWETH, testPairAW)})

	// the reference token is only priced once a sync on one of its pairs ran
	weth := mustEntity(t, sg.Store, entity.NewToken(testWETH))
	weth.DerivedETH = bd("1")
	sg.Save(weth)

	return sg, fx
}

func TestHandlePairSyncEvent(t *testing.T) {
	sg, _ := newPairAWSubgraph(t)

	TestEvents(t, sg, []Event{syncEvent(2, 2, 0, testPairAW, wei(1000), wei(2000))})

	pair := mustEntity(t, sg.Store, entity.NewPair(testPairAW))
	assert.True(t, pair.Reserve0.Equal(bd("1000")), "reserve0 %s", pair.Reserve0)
	assert.True(t, pair.Reserve1.Equal(bd("2000")), "reserve1 %s", pair.Reserve1)
	assert.True(t, pair.Token0Price.Equal(bd("0.5")), "token0Price %s", pair.Token0Price)
	assert.True(t, pair.Token1Price.Equal(bd("2")), "token1Price %s", pair.Token1Price)
	assert.True(t, pair.ReserveETH.Equal(bd("4000")), "reserveETH %s", pair.ReserveETH)

	// no stable pair yet, so no USD valuation
	assert.True(t, pair.ReserveUSD.IsZero())
	assert.True(t, pair.TrackedReserveETH.IsZero())

	tokenA := mustEntity(t, sg.Store, entity.NewToken(testTokenA))
	assert.True(t, tokenA.DerivedETH.Equal(bd("2")), "derivedETH %s", tokenA.DerivedETH)
	assert.True(t, tokenA.TotalLiquidity.Equal(bd("1000")))

	weth := mustEntity(t, sg.Store, entity.NewToken(testWETH))
	assert.True(t, weth.DerivedETH.Equal(bd("1")))
	assert.True(t, weth.TotalLiquidity.Equal(bd("2000")))

	bundle := mustEntity(t, sg.Store, entity.NewBundle())
	assert.True(t, bundle.EthPrice.IsZero())
}

func TestHandlePairSyncEvent_LiquidityConservation(t *testing.T) {
	sg, _ := newPairAWSubgraph(t)

	TestEvents(t, sg, []Event{
		syncEvent(2, 2, 0, testPairAW, wei(1000), wei(2000)),
		syncEvent(3, 3, 0, testPairAW, wei(500), wei(1000)),
	})

	tokenA := mustEntity(t, sg.Store, entity.NewToken(testTokenA))
	assert.True(t, tokenA.TotalLiquidity.Equal(bd("500")), "got %s", tokenA.TotalLiquidity)

	weth := mustEntity(t, sg.Store, entity.NewToken(testWETH))
	assert.True(t, weth.TotalLiquidity.Equal(bd("1000")), "got %s", weth.TotalLiquidity)
}

func TestHandlePairSyncEvent_StablePairSetsEthPrice(t *testing.T) {
	fx := NewStaticEffects()
	fx.SetToken(testUSDC, "USDC", 6)
	fx.SetToken(testWETH, "WETH", 18)

	sg := NewTestSubgraph(t, testChainYAML, fx)
	TestEvents(t, sg, []Event{
		pairCreated(1, testUSDC, testWETH, testStablePair),
		syncEvent(2, 2, 0, testStablePair, bigInt(4_000_000_000_000), wei(2000)),
	})

	bundle := mustEntity(t, sg.Store, entity.NewBundle())
	assert.True(t, bundle.EthPrice.Equal(bd("2000")), "got %s", bundle.EthPrice)

	factory := mustEntity(t, sg.Store, entity.NewFactory(testFactory))
	pair := mustEntity(t, sg.Store, entity.NewPair(testStablePair))

	// usdc is derived from weth which is still unpriced during this first sync
	assert.True(t, pair.ReserveETH.Equal(bd("2000")), "reserveETH %s", pair.ReserveETH)
	assert.True(t, factory.TotalLiquidityETH.Equal(pair.TrackedReserveETH))
	assert.True(t, factory.TotalLiquidityUSD.Equal(factory.TotalLiquidityETH.Mul(bundle.EthPrice)))
}

func TestHandlePairSyncEvent_UnknownPair(t *testing.T) {
	sg, _ := newPairAWSubgraph(t)
	sg.Flush()

	err := sg.HandleEvent(context.Background(), syncEvent(2, 2, 0, testPairAB, wei(1), wei(1)))
	require.ErrorIs(t, err, ErrMissingPrerequisite)

	var missingErr *MissingEntityError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, entity.TablePair, missingErr.Table)
	assert.Empty(t, sg.Flush())
}
