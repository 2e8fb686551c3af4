package source

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFactory = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testPair    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testToken0  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	testToken1  = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	testUser    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	testRouter  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func addressTopic(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

func words(values ...*big.Int) []byte {
	var data []byte
	for _, v := range values {
		data = append(data, common.LeftPadBytes(v.Bytes(), 32)...)
	}
	return data
}

func testBlock() exchange.Block {
	return exchange.Block{Number: 10, Timestamp: time.Unix(1609459200, 0).UTC()}
}

func TestDecodeLog_PairCreated(t *testing.T) {
	log := types.Log{
		Address: testFactory,
		Topics:  []common.Hash{PairCreatedTopic, addressTopic(testToken0), addressTopic(testToken1)},
		Data:    words(new(big.Int).SetBytes(testPair.Bytes()), big.NewInt(7)),
		TxHash:  common.HexToHash("0x01"),
		Index:   3,
	}

	ev, err := DecodeLog(log, testBlock(), common.Address{})
	require.NoError(t, err)

	created, ok := ev.(*exchange.FactoryPairCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "0x00000000000000000000000000000000000000a0", created.Token0.Pretty())
	assert.Equal(t, "0x00000000000000000000000000000000000000e0", created.Token1.Pretty())
	assert.Equal(t, "0x00000000000000000000000000000000000000b1", created.Pair.Pretty())
	assert.Equal(t, int64(7), created.PairIndex.Int64())
	assert.Equal(t, uint64(3), created.LogIndex)
	assert.Equal(t, uint64(10), created.Block.Number)
	assert.Empty(t, created.Transaction.From)
}

func TestDecodeLog_PairEvents(t *testing.T) {
	tests := []struct {
		name   string
		log    types.Log
		expect func(t *testing.T, ev exchange.Event)
	}{
		{
			name: "transfer",
			log: types.Log{
				Topics: []common.Hash{TransferTopic, addressTopic(common.Address{}), addressTopic(testUser)},
				Data:   words(big.NewInt(1000)),
			},
			expect: func(t *testing.T, ev exchange.Event) {
				transfer := ev.(*exchange.PairTransferEvent)
				assert.Equal(t, "0x0000000000000000000000000000000000000000", transfer.From.Pretty())
				assert.Equal(t, "0x00000000000000000000000000000000000000d0", transfer.To.Pretty())
				assert.Equal(t, int64(1000), transfer.Value.Int64())
			},
		},
		{
			name: "mint",
			log: types.Log{
				Topics: []common.Hash{MintTopic, addressTopic(testRouter)},
				Data:   words(big.NewInt(5), big.NewInt(6)),
			},
			expect: func(t *testing.T, ev exchange.Event) {
				mint := ev.(*exchange.PairMintEvent)
				assert.Equal(t, "0x00000000000000000000000000000000000000d1", mint.Sender.Pretty())
				assert.Equal(t, int64(5), mint.Amount0.Int64())
				assert.Equal(t, int64(6), mint.Amount1.Int64())
			},
		},
		{
			name: "burn",
			log: types.Log{
				Topics: []common.Hash{BurnTopic, addressTopic(testRouter), addressTopic(testUser)},
				Data:   words(big.NewInt(5), big.NewInt(6)),
			},
			expect: func(t *testing.T, ev exchange.Event) {
				burn := ev.(*exchange.PairBurnEvent)
				assert.Equal(t, "0x00000000000000000000000000000000000000d0", burn.To.Pretty())
				assert.Equal(t, int64(6), burn.Amount1.Int64())
			},
		},
		{
			name: "swap",
			log: types.Log{
				Topics: []common.Hash{SwapTopic, addressTopic(testRouter), addressTopic(testUser)},
				Data:   words(big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)),
			},
			expect: func(t *testing.T, ev exchange.Event) {
				swap := ev.(*exchange.PairSwapEvent)
				assert.Equal(t, int64(1), swap.Amount0In.Int64())
				assert.Equal(t, int64(2), swap.Amount1In.Int64())
				assert.Equal(t, int64(3), swap.Amount0Out.Int64())
				assert.Equal(t, int64(4), swap.Amount1Out.Int64())
				assert.Equal(t, "0x00000000000000000000000000000000000000d0", swap.To.Pretty())
				assert.Equal(t, "0x00000000000000000000000000000000000000d0", swap.Transaction.From.Pretty())
			},
		},
		{
			name: "sync",
			log: types.Log{
				Topics: []common.Hash{SyncTopic},
				Data:   words(big.NewInt(100), big.NewInt(200)),
			},
			expect: func(t *testing.T, ev exchange.Event) {
				sync := ev.(*exchange.PairSyncEvent)
				assert.Equal(t, int64(100), sync.Reserve0.Int64())
				assert.Equal(t, int64(200), sync.Reserve1.Int64())
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.log.Address = testPair
			ev, err := DecodeLog(test.log, testBlock(), testUser)
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, "0x00000000000000000000000000000000000000b1", ev.Base().LogAddress.Pretty())
			test.expect(t, ev)
		})
	}
}

func TestDecodeLog_Malformed(t *testing.T) {
	_, err := DecodeLog(types.Log{Topics: []common.Hash{SyncTopic}, Data: words(big.NewInt(1))}, testBlock(), common.Address{})
	require.Error(t, err)

	_, err = DecodeLog(types.Log{Topics: []common.Hash{TransferTopic}, Data: words(big.NewInt(1))}, testBlock(), common.Address{})
	require.Error(t, err)
}

func TestDecodeLog_UnknownTopic(t *testing.T) {
	approval := common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")

	ev, err := DecodeLog(types.Log{Topics: []common.Hash{approval}}, testBlock(), common.Address{})
	require.NoError(t, err)
	assert.Nil(t, ev)

	ev, err = DecodeLog(types.Log{}, testBlock(), common.Address{})
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9", PairCreatedTopic.Hex())
	assert.Equal(t, "0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822", SwapTopic.Hex())
	assert.Equal(t, "0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1", SyncTopic.Hex())
	assert.Equal(t, "0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f", MintTopic.Hex())
	assert.Equal(t, "0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496", BurnTopic.Hex())
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", TransferTopic.Hex())
}
