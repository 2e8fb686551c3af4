package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

type Factory struct {
	Base
	PairCount          uint64          `json:"pairCount"`
	TxCount            uint64          `json:"txCount"`
	TotalVolumeUSD     decimal.Decimal `json:"totalVolumeUSD"`
	TotalVolumeETH     decimal.Decimal `json:"totalVolumeETH"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidityUSD  decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH  decimal.Decimal `json:"totalLiquidityETH"`
}

func NewFactory(id string) *Factory {
	return &Factory{Base: Base{ID: id}}
}

func (*Factory) TableName() string { return TableFactory }

type Bundle struct {
	Base
	EthPrice decimal.Decimal `json:"ethPrice"`
}

func NewBundle() *Bundle {
	return &Bundle{Base: Base{ID: BundleID}}
}

func (*Bundle) TableName() string { return TableBundle }

type Token struct {
	Base
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	Decimals           int64           `json:"decimals"`
	TotalSupply        *big.Int        `json:"totalSupply"`
	DerivedETH         decimal.Decimal `json:"derivedETH"`
	PriceUSD           decimal.Decimal `json:"priceUSD"`
	TradeVolume        decimal.Decimal `json:"tradeVolume"`
	TradeVolumeUSD     decimal.Decimal `json:"tradeVolumeUSD"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidity     decimal.Decimal `json:"totalLiquidity"`
	TxCount            uint64          `json:"txCount"`
	FeesUSD            decimal.Decimal `json:"feesUSD"`
	HourArray          []int64         `json:"hourArray"`
	LastHourRecorded   int64           `json:"lastHourRecorded"`
	LastHourArchived   int64           `json:"lastHourArchived"`
}

func NewToken(id string) *Token {
	return &Token{Base: Base{ID: id}}
}

func (*Token) TableName() string { return TableToken }

// DeepCopy detaches the hour array from the value it was copied from.
func (t *Token) DeepCopy() {
	if t.HourArray != nil {
		t.HourArray = append([]int64(nil), t.HourArray...)
	}
}

type Pair struct {
	Base
	Token0                 string          `json:"token0"`
	Token1                 string          `json:"token1"`
	Reserve0               decimal.Decimal `json:"reserve0"`
	Reserve1               decimal.Decimal `json:"reserve1"`
	TotalSupply            decimal.Decimal `json:"totalSupply"`
	ReserveETH             decimal.Decimal `json:"reserveETH"`
	ReserveUSD             decimal.Decimal `json:"reserveUSD"`
	TrackedReserveETH      decimal.Decimal `json:"trackedReserveETH"`
	Token0Price            decimal.Decimal `json:"token0Price"`
	Token1Price            decimal.Decimal `json:"token1Price"`
	VolumeToken0           decimal.Decimal `json:"volumeToken0"`
	VolumeToken1           decimal.Decimal `json:"volumeToken1"`
	VolumeUSD              decimal.Decimal `json:"volumeUSD"`
	UntrackedVolumeUSD     decimal.Decimal `json:"untrackedVolumeUSD"`
	TxCount                uint64          `json:"txCount"`
	MintCount              uint64          `json:"mintCount"`
	BurnCount              uint64          `json:"burnCount"`
	SwapCount              uint64          `json:"swapCount"`
	LiquidityProviderCount uint64          `json:"liquidityProviderCount"`
	CreatedAtTimestamp     int64           `json:"createdAtTimestamp"`
	CreatedAtBlockNumber   uint64          `json:"createdAtBlockNumber"`
}

func NewPair(id string) *Pair {
	return &Pair{Base: Base{ID: id}}
}

func (*Pair) TableName() string { return TablePair }

// PairTokenLookup is the reverse token -> pair relation, one per side of a pair.
type PairTokenLookup struct {
	Base
	Token string `json:"token"`
	Pair  string `json:"pair"`
}

func NewPairTokenLookup(token, pair string) *PairTokenLookup {
	return &PairTokenLookup{Base: Base{ID: PairTokenLookupID(token, pair)}, Token: token, Pair: pair}
}

func (*PairTokenLookup) TableName() string { return TablePairTokenLookup }

func (l *PairTokenLookup) Indexes() map[string]string {
	return map[string]string{FieldToken: l.Token}
}

type User struct {
	Base
}

func NewUser(id string) *User {
	return &User{Base: Base{ID: id}}
}

func (*User) TableName() string { return TableUser }

type Transaction struct {
	Base
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"`
	MintCount   uint64 `json:"mintCount"`
	BurnCount   uint64 `json:"burnCount"`
	SwapCount   uint64 `json:"swapCount"`
}

func NewTransaction(id string) *Transaction {
	return &Transaction{Base: Base{ID: id}}
}

func (*Transaction) TableName() string { return TableTransaction }

type Swap struct {
	Base
	Transaction string          `json:"transaction"`
	Timestamp   int64           `json:"timestamp"`
	Pair        string          `json:"pair"`
	Sender      string          `json:"sender"`
	From        string          `json:"from"`
	Amount0In   decimal.Decimal `json:"amount0In"`
	Amount1In   decimal.Decimal `json:"amount1In"`
	Amount0Out  decimal.Decimal `json:"amount0Out"`
	Amount1Out  decimal.Decimal `json:"amount1Out"`
	To          string          `json:"to"`
	LogIndex    uint64          `json:"logIndex"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
}

func NewSwap(id string) *Swap {
	return &Swap{Base: Base{ID: id}}
}

func (*Swap) TableName() string { return TableSwap }

func (s *Swap) Indexes() map[string]string {
	return map[string]string{FieldTransaction: s.Transaction}
}

type LiquidityPosition struct {
	Base
	Pair                  string          `json:"pair"`
	User                  string          `json:"user"`
	LiquidityTokenBalance decimal.Decimal `json:"liquidityTokenBalance"`
}

func NewLiquidityPosition(pair, user string) *LiquidityPosition {
	return &LiquidityPosition{Base: Base{ID: LiquidityPositionID(pair, user)}, Pair: pair, User: user}
}

func (*LiquidityPosition) TableName() string { return TableLiquidityPosition }

func (p *LiquidityPosition) Indexes() map[string]string {
	return map[string]string{FieldPair: p.Pair}
}

type LiquidityPositionSnapshot struct {
	Base
	LiquidityPosition         string          `json:"liquidityPosition"`
	Timestamp                 int64           `json:"timestamp"`
	Block                     uint64          `json:"block"`
	User                      string          `json:"user"`
	Pair                      string          `json:"pair"`
	Token0PriceUSD            decimal.Decimal `json:"token0PriceUSD"`
	Token1PriceUSD            decimal.Decimal `json:"token1PriceUSD"`
	Reserve0                  decimal.Decimal `json:"reserve0"`
	Reserve1                  decimal.Decimal `json:"reserve1"`
	ReserveUSD                decimal.Decimal `json:"reserveUSD"`
	LiquidityTokenBalance     decimal.Decimal `json:"liquidityTokenBalance"`
	LiquidityTokenTotalSupply decimal.Decimal `json:"liquidityTokenTotalSupply"`
}

func (*LiquidityPositionSnapshot) TableName() string { return TableLiquidityPositionSnapshot }

type UniswapDayData struct {
	Base
	Date                 int64           `json:"date"`
	DailyVolumeETH       decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD       decimal.Decimal `json:"dailyVolumeUSD"`
	DailyVolumeUntracked decimal.Decimal `json:"dailyVolumeUntracked"`
	TotalVolumeETH       decimal.Decimal `json:"totalVolumeETH"`
	TotalVolumeUSD       decimal.Decimal `json:"totalVolumeUSD"`
	TotalLiquidityETH    decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD    decimal.Decimal `json:"totalLiquidityUSD"`
	TxCount              uint64          `json:"txCount"`
}

func (*UniswapDayData) TableName() string { return TableUniswapDayData }

type PairDayData struct {
	Base
	Date              int64           `json:"date"`
	PairAddress       string          `json:"pairAddress"`
	Token0            string          `json:"token0"`
	Token1            string          `json:"token1"`
	Reserve0          decimal.Decimal `json:"reserve0"`
	Reserve1          decimal.Decimal `json:"reserve1"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	ReserveUSD        decimal.Decimal `json:"reserveUSD"`
	DailyVolumeToken0 decimal.Decimal `json:"dailyVolumeToken0"`
	DailyVolumeToken1 decimal.Decimal `json:"dailyVolumeToken1"`
	DailyVolumeUSD    decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns         uint64          `json:"dailyTxns"`
}

func (*PairDayData) TableName() string { return TablePairDayData }

type PairHourData struct {
	Base
	HourStartUnix      int64           `json:"hourStartUnix"`
	Pair               string          `json:"pair"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	TotalSupply        decimal.Decimal `json:"totalSupply"`
	ReserveUSD         decimal.Decimal `json:"reserveUSD"`
	HourlyVolumeToken0 decimal.Decimal `json:"hourlyVolumeToken0"`
	HourlyVolumeToken1 decimal.Decimal `json:"hourlyVolumeToken1"`
	HourlyVolumeUSD    decimal.Decimal `json:"hourlyVolumeUSD"`
	HourlyTxns         uint64          `json:"hourlyTxns"`
}

func (*PairHourData) TableName() string { return TablePairHourData }

type TokenDayData struct {
	Base
	Date                int64           `json:"date"`
	Token               string          `json:"token"`
	DailyVolumeToken    decimal.Decimal `json:"dailyVolumeToken"`
	DailyVolumeETH      decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD      decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns           uint64          `json:"dailyTxns"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
}

func (*TokenDayData) TableName() string { return TableTokenDayData }

type TokenHourData struct {
	Base
	PeriodStartUnix     int64           `json:"periodStartUnix"`
	Token               string          `json:"token"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volumeUSD"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalValueLocked    decimal.Decimal `json:"totalValueLocked"`
	TotalValueLockedUSD decimal.Decimal `json:"totalValueLockedUSD"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
	FeesUSD             decimal.Decimal `json:"feesUSD"`
	OpenPrice           decimal.Decimal `json:"open"`
	HighPrice           decimal.Decimal `json:"high"`
	LowPrice            decimal.Decimal `json:"low"`
	ClosePrice          decimal.Decimal `json:"close"`
}

func (*TokenHourData) TableName() string { return TableTokenHourData }
