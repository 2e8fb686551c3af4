package source

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
)

var (
	PairCreatedTopic = crypto.Keccak256Hash([]byte("PairCreated(address,address,address,uint256)"))
	TransferTopic    = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	MintTopic        = crypto.Keccak256Hash([]byte("Mint(address,uint256,uint256)"))
	BurnTopic        = crypto.Keccak256Hash([]byte("Burn(address,uint256,uint256,address)"))
	SwapTopic        = crypto.Keccak256Hash([]byte("Swap(address,uint256,uint256,uint256,uint256,address)"))
	SyncTopic        = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
)

// pairTopics are the events delivered for every registered pair.
var pairTopics = []common.Hash{TransferTopic, MintTopic, BurnTopic, SwapTopic, SyncTopic}

// DecodeLog turns a raw log into its exchange event. Logs of other events yield nil.
func DecodeLog(log types.Log, block exchange.Block, from common.Address) (exchange.Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}

	base := exchange.EventBase{
		Block:       block,
		Transaction: exchange.Transaction{Hash: eth.Hash(log.TxHash.Bytes())},
		LogIndex:    uint64(log.Index),
		LogAddress:  toAddress(log.Address),
	}
	if from != (common.Address{}) {
		base.Transaction.From = toAddress(from)
	}

	switch log.Topics[0] {
	case PairCreatedTopic:
		if err := expect(log, 3, 2); err != nil {
			return nil, fmt.Errorf("pair created: %w", err)
		}
		return &exchange.FactoryPairCreatedEvent{
			EventBase: base,
			Token0:    topicAddress(log.Topics[1]),
			Token1:    topicAddress(log.Topics[2]),
			Pair:      toAddress(common.BytesToAddress(word(log.Data, 0))),
			PairIndex: new(big.Int).SetBytes(word(log.Data, 1)),
		}, nil

	case TransferTopic:
		if err := expect(log, 3, 1); err != nil {
			return nil, fmt.Errorf("transfer: %w", err)
		}
		return &exchange.PairTransferEvent{
			EventBase: base,
			From:      topicAddress(log.Topics[1]),
			To:        topicAddress(log.Topics[2]),
			Value:     new(big.Int).SetBytes(word(log.Data, 0)),
		}, nil

	case MintTopic:
		if err := expect(log, 2, 2); err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		return &exchange.PairMintEvent{
			EventBase: base,
			Sender:    topicAddress(log.Topics[1]),
			Amount0:   new(big.Int).SetBytes(word(log.Data, 0)),
			Amount1:   new(big.Int).SetBytes(word(log.Data, 1)),
		}, nil

	case BurnTopic:
		if err := expect(log, 3, 2); err != nil {
			return nil, fmt.Errorf("burn: %w", err)
		}
		return &exchange.PairBurnEvent{
			EventBase: base,
			Sender:    topicAddress(log.Topics[1]),
			Amount0:   new(big.Int).SetBytes(word(log.Data, 0)),
			Amount1:   new(big.Int).SetBytes(word(log.Data, 1)),
			To:        topicAddress(log.Topics[2]),
		}, nil

	case SwapTopic:
		if err := expect(log, 3, 4); err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		return &exchange.PairSwapEvent{
			EventBase:  base,
			Sender:     topicAddress(log.Topics[1]),
			Amount0In:  new(big.Int).SetBytes(word(log.Data, 0)),
			Amount1In:  new(big.Int).SetBytes(word(log.Data, 1)),
			Amount0Out: new(big.Int).SetBytes(word(log.Data, 2)),
			Amount1Out: new(big.Int).SetBytes(word(log.Data, 3)),
			To:         topicAddress(log.Topics[2]),
		}, nil

	case SyncTopic:
		if err := expect(log, 1, 2); err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
		return &exchange.PairSyncEvent{
			EventBase: base,
			Reserve0:  new(big.Int).SetBytes(word(log.Data, 0)),
			Reserve1:  new(big.Int).SetBytes(word(log.Data, 1)),
		}, nil
	}

	return nil, nil
}

func expect(log types.Log, topics, words int) error {
	if len(log.Topics) != topics {
		return fmt.Errorf("expected %d topics, got %d", topics, len(log.Topics))
	}
	if len(log.Data) < words*32 {
		return fmt.Errorf("expected %d data bytes, got %d", words*32, len(log.Data))
	}
	return nil
}

func word(data []byte, index int) []byte {
	return data[index*32 : (index+1)*32]
}

func topicAddress(topic common.Hash) eth.Address {
	return toAddress(common.BytesToAddress(topic.Bytes()))
}

func toAddress(address common.Address) eth.Address {
	return eth.Address(address.Bytes())
}
