package exchange

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/eth-go"
)

const (
	testFactory    = "0x00000000000000000000000000000000000000f0"
	testWETH       = "0x00000000000000000000000000000000000000e0"
	testUSDC       = "0x00000000000000000000000000000000000000c0"
	testUSDT       = "0x00000000000000000000000000000000000000c1"
	testTokenA     = "0x00000000000000000000000000000000000000a0"
	testTokenB     = "0x00000000000000000000000000000000000000a1"
	testStablePair = "0x00000000000000000000000000000000000000b0"
	testUSDTPair   = "0x00000000000000000000000000000000000000b3"
	testPairAW     = "0x00000000000000000000000000000000000000b1"
	testPairAB     = "0x00000000000000000000000000000000000000b2"
	testUser       = "0x00000000000000000000000000000000000000d0"
	testRouter     = "0x00000000000000000000000000000000000000d1"
	testFeeTo      = "0x00000000000000000000000000000000000000d2"

	// 2021-01-01T00:00:00Z
	testTimestamp = 1609459200
)

var testChainYAML = `
chainId: 1
name: test
factoryAddress: "` + testFactory + `"
referenceToken: "` + testWETH + `"
stableTokenPairs:
  - "` + testStablePair + `"
  - "` + testUSDTPair + `"
whitelist:
  - "` + testWETH + `"
  - "` + testUSDC + `"
  - "` + testUSDT + `"
stablecoins:
  - "` + testUSDC + `"
  - "` + testUSDT + `"
minimumUSDThresholdNewPairs: "0"
minimumLiquidityThresholdETH: "0"
feePercent: "0.003"
`

func testEventBase(block uint64, trx uint64, logIndex uint64, address string) EventBase {
	return EventBase{
		Block: Block{
			Number:    block,
			Hash:      testHash(block),
			Timestamp: time.Unix(testTimestamp+int64(block)*12, 0).UTC(),
		},
		Transaction: Transaction{
			Hash: testHash(0x10000 + trx),
			From: eth.MustNewAddress(testUser),
		},
		LogIndex:   logIndex,
		LogAddress: eth.MustNewAddress(address),
	}
}

func testHash(n uint64) eth.Hash {
	h := make([]byte, 32)
	binary.BigEndian.PutUint64(h[24:], n)
	return eth.Hash(h)
}

func addr(address string) eth.Address {
	return eth.MustNewAddress(address)
}

// wei returns amount * 10^18.
func wei(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func bd(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func pairCreated(block uint64, token0, token1, pair string) *FactoryPairCreatedEvent {
	return &FactoryPairCreatedEvent{
		EventBase: testEventBase(block, block, 0, testFactory),
		Token0:    addr(token0),
		Token1:    addr(token1),
		Pair:      addr(pair),
		PairIndex: big.NewInt(1),
	}
}

func transfer(block, trx, logIndex uint64, pair, from, to string, value *big.Int) *PairTransferEvent {
	return &PairTransferEvent{
		EventBase: testEventBase(block, trx, logIndex, pair),
		From:      addr(from),
		To:        addr(to),
		Value:     value,
	}
}

func syncEvent(block, trx, logIndex uint64, pair string, reserve0, reserve1 *big.Int) *PairSyncEvent {
	return &PairSyncEvent{
		EventBase: testEventBase(block, trx, logIndex, pair),
		Reserve0:  reserve0,
		Reserve1:  reserve1,
	}
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}
