package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEthPriceInUSD_WeightedByStableReserve(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())
	LoadStoreYAML(t, sg.Store, `---
storeData:
  - type: pair
    entity:
      id: "`+testStablePair+`"
      token0: "`+testUSDC+`"
      token1: "`+testWETH+`"
      reserve0: "3000000"
      reserve1: "1500"
      token0Price: "2000"
      token1Price: "0.0005"
  - type: pair
    entity:
      id: "`+testUSDTPair+`"
      token0: "`+testWETH+`"
      token1: "`+testUSDT+`"
      reserve0: "416.666"
      reserve1: "1000000"
      token0Price: "0.000416666"
      token1Price: "2400"
`)

	price, err := sg.GetEthPriceInUSD()
	require.NoError(t, err)

	// (2000 * 3000000 + 2400 * 1000000) / 4000000
	assert.True(t, price.Equal(bd("2100")), "got %s", price)
}

func TestGetEthPriceInUSD_SkipsMissingAndEmptyPairs(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())

	price, err := sg.GetEthPriceInUSD()
	require.NoError(t, err)
	assert.True(t, price.IsZero())

	LoadStoreYAML(t, sg.Store, `---
storeData:
  - type: pair
    entity:
      id: "`+testStablePair+`"
      token0: "`+testUSDC+`"
      token1: "`+testWETH+`"
      reserve0: "0"
      reserve1: "0"
  - type: pair
    entity:
      id: "`+testUSDTPair+`"
      token0: "`+testWETH+`"
      token1: "`+testUSDT+`"
      reserve0: "100"
      reserve1: "250000"
      token0Price: "0.0004"
      token1Price: "2500"
`)

	price, err = sg.GetEthPriceInUSD()
	require.NoError(t, err)
	assert.True(t, price.Equal(bd("2500")), "got %s", price)
}

func TestGetEthPriceInUSD_SkipsNonStablecoinCounterToken(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())
	LoadStoreYAML(t, sg.Store, `---
storeData:
  - type: pair
    entity:
      id: "`+testStablePair+`"
      token0: "`+testTokenA+`"
      token1: "`+testWETH+`"
      reserve0: "3000000"
      reserve1: "1500"
      token0Price: "2000"
      token1Price: "0.0005"
  - type: pair
    entity:
      id: "`+testUSDTPair+`"
      token0: "`+testWETH+`"
      token1: "`+testUSDT+`"
      reserve0: "416.666"
      reserve1: "1000000"
      token0Price: "0.000416666"
      token1Price: "2400"
`)

	price, err := sg.GetEthPriceInUSD()
	require.NoError(t, err)
	assert.True(t, price.Equal(bd("2400")), "got %s", price)
}

func TestFindEthPerToken(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())
	LoadStoreYAML(t, sg.Store, `---
storeData:
  - type: token
    entity:
      id: "`+testWETH+`"
      derivedETH: "1"
  - type: token
    entity:
      id: "`+testTokenA+`"
  - type: token
    entity:
      id: "`+testTokenB+`"
  - type: pair
    entity:
      id: "`+testPairAW+`"
      token0: "`+testTokenA+`"
      token1: "`+testWETH+`"
      reserve0: "100"
      reserve1: "200"
      token0Price: "0.5"
      token1Price: "2"
  - type: pair
    entity:
      id: "`+testPairAB+`"
      token0: "`+testTokenA+`"
      token1: "`+testTokenB+`"
      reserve0: "10"
      reserve1: "99999"
      token0Price: "0.0001"
      token1Price: "9999.9"
  - type: pair_token_lookup
    entity:
      id: "`+testTokenA+`-`+testPairAW+`"
      token: "`+testTokenA+`"
      pair: "`+testPairAW+`"
  - type: pair_token_lookup
    entity:
      id: "`+testTokenA+`-`+testPairAB+`"
      token: "`+testTokenA+`"
      pair: "`+testPairAB+`"
  - type: pair_token_lookup
    entity:
      id: "`+testTokenB+`-`+testPairAB+`"
      token: "`+testTokenB+`"
      pair: "`+testPairAB+`"
`)

	tests := []struct {
		name   string
		token  string
		expect string
	}{
		{"reference token", testWETH, "1"},
		{"priced through whitelisted counter token", testTokenA, "2"},
		{"no whitelisted counter token", testTokenB, "0"},
		{"no pairs", testUSDC, "0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			price, err := sg.FindEthPerToken(test.token)
			require.NoError(t, err)
			assert.True(t, price.Equal(bd(test.expect)), "got %s", price)
		})
	}
}

func TestFindEthPerToken_MinimumLiquidityThreshold(t *testing.T) {
	sg := NewTestSubgraph(t, testChainYAML, NewStaticEffects())
	sg.Chain.MinimumLiquidityThresholdETH = bd("500")

	LoadStoreYAML(t, sg.Store, `---
storeData:
  - type: token
    entity:
      id: "`+testWETH+`"
      derivedETH: "1"
  - type: pair
    entity:
      id: "`+testPairAW+`"
      token0: "`+testTokenA+`"
      token1: "`+testWETH+`"
      reserve0: "100"
      reserve1: "200"
      token0Price: "0.5"
      token1Price: "2"
  - type: pair_token_lookup
    entity:
      id: "`+testTokenA+`-`+testPairAW+`"
      token: "`+testTokenA+`"
      pair: "`+testPairAW+`"
`)

	price, err := sg.FindEthPerToken(testTokenA)
	require.NoError(t, err)
	assert.True(t, price.IsZero(), "got %s", price)
}
