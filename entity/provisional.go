package entity

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Phase of a two-phase Mint or Burn record. A Transfer creates the Provisional shell, the matching
// Mint/Burn event of the same transaction moves it to Complete.
type Phase string

const (
	PhaseProvisional Phase = "provisional"
	PhaseComplete    Phase = "complete"
)

var ErrAlreadyComplete = errors.New("record already complete")

// Completion carries the values the Mint or Burn event brings to a provisional record.
type Completion struct {
	Sender    string
	To        string
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	AmountUSD decimal.Decimal
	LogIndex  uint64
}

type Mint struct {
	Base
	Phase        Phase            `json:"phase"`
	Transaction  string           `json:"transaction"`
	Timestamp    int64            `json:"timestamp"`
	Pair         string           `json:"pair"`
	To           string           `json:"to"`
	Liquidity    decimal.Decimal  `json:"liquidity"`
	Sender       *string          `json:"sender"`
	Amount0      *decimal.Decimal `json:"amount0"`
	Amount1      *decimal.Decimal `json:"amount1"`
	LogIndex     uint64           `json:"logIndex"`
	AmountUSD    *decimal.Decimal `json:"amountUSD"`
	FeeTo        *string          `json:"feeTo"`
	FeeLiquidity *decimal.Decimal `json:"feeLiquidity"`
}

func NewProvisionalMint(id, transaction, pair, to string, liquidity decimal.Decimal, timestamp int64, logIndex uint64) *Mint {
	return &Mint{
		Base:        Base{ID: id},
		Phase:       PhaseProvisional,
		Transaction: transaction,
		Timestamp:   timestamp,
		Pair:        pair,
		To:          to,
		Liquidity:   liquidity,
		LogIndex:    logIndex,
	}
}

func (*Mint) TableName() string { return TableMint }

func (m *Mint) Indexes() map[string]string {
	return map[string]string{FieldTransaction: m.Transaction}
}

// IsComplete reports whether the Mint event was seen, which is signaled by the sender being set.
func (m *Mint) IsComplete() bool {
	return m.Sender != nil
}

func (m *Mint) Complete(c Completion) error {
	if m.IsComplete() {
		return ErrAlreadyComplete
	}
	sender := c.Sender
	m.Sender = &sender
	m.Amount0 = &c.Amount0
	m.Amount1 = &c.Amount1
	m.AmountUSD = &c.AmountUSD
	m.LogIndex = c.LogIndex
	m.Phase = PhaseComplete
	return nil
}

type Burn struct {
	Base
	Phase         Phase            `json:"phase"`
	Transaction   string           `json:"transaction"`
	Timestamp     int64            `json:"timestamp"`
	Pair          string           `json:"pair"`
	Liquidity     decimal.Decimal  `json:"liquidity"`
	Sender        *string          `json:"sender"`
	Amount0       *decimal.Decimal `json:"amount0"`
	Amount1       *decimal.Decimal `json:"amount1"`
	To            *string          `json:"to"`
	LogIndex      uint64           `json:"logIndex"`
	AmountUSD     *decimal.Decimal `json:"amountUSD"`
	NeedsComplete bool             `json:"needsComplete"`
	FeeTo         *string          `json:"feeTo"`
	FeeLiquidity  *decimal.Decimal `json:"feeLiquidity"`
}

func NewProvisionalBurn(id, transaction, pair string, liquidity decimal.Decimal, timestamp int64, logIndex uint64) *Burn {
	return &Burn{
		Base:        Base{ID: id},
		Phase:       PhaseProvisional,
		Transaction: transaction,
		Timestamp:   timestamp,
		Pair:        pair,
		Liquidity:   liquidity,
		LogIndex:    logIndex,
	}
}

func (*Burn) TableName() string { return TableBurn }

func (b *Burn) Indexes() map[string]string {
	return map[string]string{FieldTransaction: b.Transaction}
}

func (b *Burn) IsComplete() bool {
	return b.Phase == PhaseComplete
}

// Complete fills the Burn event values. Sender and recipient from the event replace the ones the
// Transfer phase recorded.
func (b *Burn) Complete(c Completion) error {
	if b.IsComplete() {
		return ErrAlreadyComplete
	}
	if c.Sender != "" {
		sender := c.Sender
		b.Sender = &sender
	}
	if c.To != "" {
		to := c.To
		b.To = &to
	}
	b.Amount0 = &c.Amount0
	b.Amount1 = &c.Amount1
	b.AmountUSD = &c.AmountUSD
	b.LogIndex = c.LogIndex
	b.Phase = PhaseComplete
	return nil
}

// FoldFeeMint records a fee mint found inside a burn transaction onto the burn.
func (b *Burn) FoldFeeMint(m *Mint) {
	to := m.To
	liquidity := m.Liquidity
	b.FeeTo = &to
	b.FeeLiquidity = &liquidity
}
