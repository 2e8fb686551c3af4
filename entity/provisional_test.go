package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_Complete(t *testing.T) {
	mint := NewProvisionalMint(IndexedID("0xabc", 0), "0xabc", "0xpair", "0xuser", decimal.NewFromInt(10), 100, 1)
	assert.False(t, mint.IsComplete())
	assert.Equal(t, PhaseProvisional, mint.Phase)

	require.NoError(t, mint.Complete(Completion{Sender: "0xrouter", Amount0: decimal.NewFromInt(1), Amount1: decimal.NewFromInt(2), LogIndex: 4}))
	assert.True(t, mint.IsComplete())
	assert.Equal(t, PhaseComplete, mint.Phase)
	assert.Equal(t, "0xrouter", *mint.Sender)
	assert.Equal(t, uint64(4), mint.LogIndex)

	require.ErrorIs(t, mint.Complete(Completion{Sender: "0xother"}), ErrAlreadyComplete)
	assert.Equal(t, "0xrouter", *mint.Sender)
}

func TestBurn_CompleteKeepsTransferPhaseValues(t *testing.T) {
	sender := "0xuser"
	burn := NewProvisionalBurn("0xabc-0", "0xabc", "0xpair", decimal.NewFromInt(4), 100, 1)
	burn.Sender = &sender

	require.NoError(t, burn.Complete(Completion{To: "0xuser", Amount0: decimal.NewFromInt(1), Amount1: decimal.NewFromInt(2)}))
	assert.Equal(t, "0xuser", *burn.Sender)
	assert.Equal(t, "0xuser", *burn.To)
	assert.True(t, burn.IsComplete())

	require.ErrorIs(t, burn.Complete(Completion{}), ErrAlreadyComplete)
}

func TestBurn_FoldFeeMint(t *testing.T) {
	mint := NewProvisionalMint("0xabc-0", "0xabc", "0xpair", "0xfeeto", decimal.RequireFromString("0.5"), 100, 2)
	burn := NewProvisionalBurn("0xabc-0", "0xabc", "0xpair", decimal.NewFromInt(4), 100, 1)

	burn.FoldFeeMint(mint)
	require.NotNil(t, burn.FeeTo)
	assert.Equal(t, "0xfeeto", *burn.FeeTo)
	assert.True(t, burn.FeeLiquidity.Equal(decimal.RequireFromString("0.5")))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, "0xabc-2", IndexedID("0xabc", 2))
	assert.Equal(t, "0xtoken-447072", BucketID("0xtoken", 447072))
	assert.Equal(t, "0xpair-0xuser", LiquidityPositionID("0xpair", "0xuser"))
	assert.Equal(t, "0xpair-0xuser-1609459200", LiquidityPositionSnapshotID(LiquidityPositionID("0xpair", "0xuser"), 1609459200))
	assert.Equal(t, "0xtoken-0xpair", PairTokenLookupID("0xtoken", "0xpair"))
}

func TestNew(t *testing.T) {
	ent, err := New(TableBundle, BundleID)
	require.NoError(t, err)
	assert.Equal(t, TableBundle, ent.TableName())
	assert.Equal(t, BundleID, ent.GetID())

	_, err = New("unknown", "1")
	require.Error(t, err)
}
