package exchange

import (
	"math/big"
	"time"

	"github.com/streamingfast/eth-go"
)

type Block struct {
	Number    uint64
	Hash      eth.Hash
	Timestamp time.Time
}

type Transaction struct {
	Hash eth.Hash
	// From is the transaction signer, nil when the event source does not provide it.
	From eth.Address
}

// EventBase is the part every delivered log shares.
type EventBase struct {
	Block       Block
	Transaction Transaction
	LogIndex    uint64
	LogAddress  eth.Address
}

func (e *EventBase) Base() *EventBase { return e }

// Event is one decoded log, delivered in (block, log index) order.
type Event interface {
	Base() *EventBase
}

type FactoryPairCreatedEvent struct {
	EventBase

	Token0    eth.Address
	Token1    eth.Address
	Pair      eth.Address
	PairIndex *big.Int
}

type PairTransferEvent struct {
	EventBase

	From  eth.Address
	To    eth.Address
	Value *big.Int
}

type PairMintEvent struct {
	EventBase

	Sender  eth.Address
	Amount0 *big.Int
	Amount1 *big.Int
}

type PairBurnEvent struct {
	EventBase

	Sender  eth.Address
	Amount0 *big.Int
	Amount1 *big.Int
	To      eth.Address
}

type PairSwapEvent struct {
	EventBase

	Sender     eth.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
	To         eth.Address
}

type PairSyncEvent struct {
	EventBase

	Reserve0 *big.Int
	Reserve1 *big.Int
}
