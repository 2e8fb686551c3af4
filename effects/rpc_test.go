package effects

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	lock      sync.Mutex
	responses map[string][]byte
	failures  map[string]error
	calls     map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: map[string][]byte{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeCaller) on(method *eth.MethodDef, raw []byte) {
	f.responses[string(method.MethodID())] = raw
}

func (f *fakeCaller) fail(method *eth.MethodDef, err error) {
	f.failures[string(method.MethodID())] = err
}

func (f *fakeCaller) count(method *eth.MethodDef) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[string(method.MethodID())]
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	selector := string(call.Data[:4])
	f.calls[selector]++
	if err, found := f.failures[selector]; found {
		return nil, err
	}
	return f.responses[selector], nil
}

func abiUint(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func abiString(s string) []byte {
	out := abiUint(32)
	out = append(out, abiUint(int64(len(s)))...)
	return append(out, common.RightPadBytes([]byte(s), (len(s)+31)/32*32)...)
}

func newTestRPC(t *testing.T, caller Caller, opts ...Option) *RPC {
	t.Helper()

	chain, err := config.ForChainID(1329)
	require.NoError(t, err)

	opts = append([]Option{WithRetries(2, 0), WithRateLimit(10000)}, opts...)
	r, err := NewRPC(caller, chain, 16, opts...)
	require.NoError(t, err)
	return r
}

var tokenAddress = eth.MustNewAddress("0x1111111111111111111111111111111111111111")

func TestRPC_FetchTokenMetadata(t *testing.T) {
	caller := newFakeCaller()
	caller.on(symbolMethod, abiString("TKN"))
	caller.on(nameMethod, abiString("Token"))
	caller.on(decimalsMethod, abiUint(6))
	caller.on(totalSupplyMethod, abiUint(1_000_000))

	r := newTestRPC(t, caller)

	md, err := r.FetchTokenMetadata(context.Background(), tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, "TKN", md.Symbol)
	assert.Equal(t, "Token", md.Name)
	assert.Equal(t, int64(6), md.Decimals.Int64())
	assert.Equal(t, int64(1_000_000), md.TotalSupply.Int64())

	_, err = r.FetchTokenMetadata(context.Background(), tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, 2, caller.count(symbolMethod), "symbol is not cached")
	assert.Equal(t, 1, caller.count(nameMethod))
	assert.Equal(t, 1, caller.count(decimalsMethod))
	assert.Equal(t, 1, caller.count(totalSupplyMethod))
}

func TestRPC_FetchTokenMetadata_Fallbacks(t *testing.T) {
	caller := newFakeCaller()
	caller.on(symbolMethod, common.RightPadBytes([]byte("MKR"), 32))
	caller.on(nameMethod, nullBytes32)
	caller.fail(decimalsMethod, errors.New("execution reverted"))
	caller.fail(totalSupplyMethod, errors.New("execution reverted"))

	r := newTestRPC(t, caller)

	md, err := r.FetchTokenMetadata(context.Background(), tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, "MKR", md.Symbol)
	assert.Equal(t, UnknownName, md.Name)
	assert.Equal(t, int64(DefaultDecimals), md.Decimals.Int64())
	assert.Equal(t, int64(0), md.TotalSupply.Int64())
	assert.Equal(t, 2, caller.count(decimalsMethod), "retried up to the attempt count")
}

func TestRPC_FetchTokenMetadata_StrictDecimals(t *testing.T) {
	caller := newFakeCaller()
	caller.fail(decimalsMethod, errors.New("execution reverted"))

	r := newTestRPC(t, caller, WithStrictDecimals())

	md, err := r.FetchTokenMetadata(context.Background(), tokenAddress)
	require.NoError(t, err)
	assert.Nil(t, md.Decimals)
	assert.Equal(t, UnknownSymbol, md.Symbol)
}

func TestRPC_FetchTokenMetadata_OutOfRangeDecimals(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		expected *big.Int
	}{
		{"defaults", nil, big.NewInt(DefaultDecimals)},
		{"strict", []Option{WithStrictDecimals()}, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			caller := newFakeCaller()
			caller.on(decimalsMethod, abiUint(5_000_000))

			r := newTestRPC(t, caller, test.opts...)

			md, err := r.FetchTokenMetadata(context.Background(), tokenAddress)
			require.NoError(t, err)
			assert.Equal(t, test.expected, md.Decimals)

			_, err = r.FetchTokenMetadata(context.Background(), tokenAddress)
			require.NoError(t, err)
			assert.Equal(t, 2, caller.count(decimalsMethod), "rejected decimals are not cached")
		})
	}
}

func TestValidDecimals(t *testing.T) {
	assert.True(t, ValidDecimals(big.NewInt(0)))
	assert.True(t, ValidDecimals(big.NewInt(MaxDecimals)))
	assert.False(t, ValidDecimals(big.NewInt(MaxDecimals+1)))
	assert.False(t, ValidDecimals(big.NewInt(-1)))
	assert.False(t, ValidDecimals(nil))
}

func TestRPC_FetchTokenMetadata_StaticDefinition(t *testing.T) {
	caller := newFakeCaller()
	caller.on(totalSupplyMethod, abiUint(42))

	r := newTestRPC(t, caller)

	md, err := r.FetchTokenMetadata(context.Background(), eth.MustNewAddress("0xe0b7927c4af23765cb51314a0e0521a9645f0e2a"))
	require.NoError(t, err)
	assert.Equal(t, "DGD", md.Symbol)
	assert.Equal(t, int64(9), md.Decimals.Int64())
	assert.Equal(t, int64(42), md.TotalSupply.Int64())
	assert.Equal(t, 0, caller.count(symbolMethod))
	assert.Equal(t, 0, caller.count(decimalsMethod))
}

func TestRPC_FetchBalance(t *testing.T) {
	caller := newFakeCaller()
	caller.on(balanceOfMethod, abiUint(1234))

	r := newTestRPC(t, caller)
	user := eth.MustNewAddress("0x2222222222222222222222222222222222222222")

	balance, err := r.FetchBalance(context.Background(), tokenAddress, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), balance.Int64())

	caller.fail(balanceOfMethod, errors.New("boom"))
	balance, err = r.FetchBalance(context.Background(), tokenAddress, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Int64())
}

func TestRPC_CancelledContext(t *testing.T) {
	caller := newFakeCaller()
	r := newTestRPC(t, caller)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FetchTokenMetadata(ctx, tokenAddress)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{"abi string", abiString("Wrapped Ether"), "Wrapped Ether"},
		{"bytes32", common.RightPadBytes([]byte("DAI"), 32), "DAI"},
		{"null bytes32", nullBytes32, ""},
		{"garbage", []byte{0x01, 0x02}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, decodeString(nameMethod, test.raw))
		})
	}
}
