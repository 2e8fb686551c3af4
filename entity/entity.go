package entity

import (
	"fmt"
	"strconv"
)

// Table names, also used as sink table/collection names.
const (
	TableFactory                   = "factory"
	TableBundle                    = "bundle"
	TableToken                     = "token"
	TablePair                      = "pair"
	TablePairTokenLookup           = "pair_token_lookup"
	TableUser                      = "user"
	TableTransaction               = "transaction"
	TableMint                      = "mint"
	TableBurn                      = "burn"
	TableSwap                      = "swap"
	TableLiquidityPosition         = "liquidity_position"
	TableLiquidityPositionSnapshot = "liquidity_position_snapshot"
	TableUniswapDayData            = "uniswap_day_data"
	TablePairDayData               = "pair_day_data"
	TablePairHourData              = "pair_hour_data"
	TableTokenDayData              = "token_day_data"
	TableTokenHourData             = "token_hour_data"
)

// Indexed field names usable with state.Store.GetWhere.
const (
	FieldTransaction = "transaction"
	FieldToken       = "token"
	FieldPair        = "pair"
)

const BundleID = "1"

type Entity interface {
	TableName() string
	GetID() string
	Exists() bool
	SetExists(exists bool)
}

type Base struct {
	ID     string `json:"id"`
	exists bool
}

func (b *Base) GetID() string         { return b.ID }
func (b *Base) Exists() bool          { return b.exists }
func (b *Base) SetExists(exists bool) { b.exists = exists }

// New returns an empty entity for the given table, used when decoding persisted rows back into a store.
func New(table, id string) (Entity, error) {
	switch table {
	case TableFactory:
		return NewFactory(id), nil
	case TableBundle:
		return NewBundle(), nil
	case TableToken:
		return NewToken(id), nil
	case TablePair:
		return NewPair(id), nil
	case TablePairTokenLookup:
		return &PairTokenLookup{Base: Base{ID: id}}, nil
	case TableUser:
		return NewUser(id), nil
	case TableTransaction:
		return NewTransaction(id), nil
	case TableMint:
		return &Mint{Base: Base{ID: id}}, nil
	case TableBurn:
		return &Burn{Base: Base{ID: id}}, nil
	case TableSwap:
		return &Swap{Base: Base{ID: id}}, nil
	case TableLiquidityPosition:
		return &LiquidityPosition{Base: Base{ID: id}}, nil
	case TableLiquidityPositionSnapshot:
		return &LiquidityPositionSnapshot{Base: Base{ID: id}}, nil
	case TableUniswapDayData:
		return &UniswapDayData{Base: Base{ID: id}}, nil
	case TablePairDayData:
		return &PairDayData{Base: Base{ID: id}}, nil
	case TablePairHourData:
		return &PairHourData{Base: Base{ID: id}}, nil
	case TableTokenDayData:
		return &TokenDayData{Base: Base{ID: id}}, nil
	case TableTokenHourData:
		return &TokenHourData{Base: Base{ID: id}}, nil
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

func PairTokenLookupID(token, pair string) string {
	return token + "-" + pair
}

func LiquidityPositionID(pair, user string) string {
	return pair + "-" + user
}

func LiquidityPositionSnapshotID(position string, timestamp int64) string {
	return position + "-" + strconv.FormatInt(timestamp, 10)
}

// IndexedID builds the id of a Mint, Burn or Swap, `index` being the count of siblings already recorded
// for the same transaction.
func IndexedID(transaction string, index int) string {
	return transaction + "-" + strconv.Itoa(index)
}

func BucketID(entityID string, bucket int64) string {
	return fmt.Sprintf("%s-%d", entityID, bucket)
}
