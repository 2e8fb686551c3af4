package source

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"go.uber.org/zap"
)

// Client is the part of *ethclient.Client the poller uses.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error)
}

// Handler consumes the events of a block in log order, then closes the block.
type Handler interface {
	HandleEvent(ctx context.Context, ev exchange.Event) error
	EndBlock(ctx context.Context, block exchange.Block) error
}

// Poller pulls the factory and pair logs over JSON-RPC in block ranges and delivers them in (block, log
// index) order. Pairs are followed from the block they are created in.
type Poller struct {
	client  Client
	factory common.Address
	logger  *zap.Logger

	batchSize     uint64
	addressChunk  int
	confirmations uint64
	pollInterval  time.Duration
	stopBlock     uint64
	senders       bool

	pairs   []common.Address
	pairSet map[common.Address]bool

	senderCache *lru.Cache
}

type Option func(p *Poller)

func WithBatchSize(blocks uint64) Option {
	return func(p *Poller) { p.batchSize = blocks }
}

func WithConfirmations(blocks uint64) Option {
	return func(p *Poller) { p.confirmations = blocks }
}

func WithPollInterval(interval time.Duration) Option {
	return func(p *Poller) { p.pollInterval = interval }
}

// WithStopBlock makes Run return once the block is processed, 0 follows the head forever.
func WithStopBlock(block uint64) Option {
	return func(p *Poller) { p.stopBlock = block }
}

// WithTransactionSenders resolves each transaction's signer, costing two extra calls per transaction.
func WithTransactionSenders(enabled bool) Option {
	return func(p *Poller) { p.senders = enabled }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func NewPoller(client Client, factory eth.Address, opts ...Option) (*Poller, error) {
	senderCache, err := lru.New(4096)
	if err != nil {
		return nil, fmt.Errorf("sender cache: %w", err)
	}

	p := &Poller{
		client:        client,
		factory:       common.BytesToAddress(factory),
		logger:        zlog,
		batchSize:     1000,
		addressChunk:  500,
		confirmations: 0,
		pollInterval:  2 * time.Second,
		pairSet:       map[common.Address]bool{},
		senderCache:   senderCache,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize == 0 {
		p.batchSize = 1
	}
	return p, nil
}

// RegisterPair adds a pair whose events are fetched from the next request on.
func (p *Poller) RegisterPair(pair eth.Address) {
	address := common.BytesToAddress(pair)
	if p.pairSet[address] {
		return
	}
	p.pairSet[address] = true
	p.pairs = append(p.pairs, address)
}

func (p *Poller) PairCount() int {
	return len(p.pairs)
}

// Run processes blocks from startBlock until the context is done or the stop block is reached.
func (p *Poller) Run(ctx context.Context, startBlock uint64, handler Handler) error {
	next := startBlock
	p.logger.Info("starting log poller",
		zap.Uint64("start_block", startBlock),
		zap.Uint64("stop_block", p.stopBlock),
		zap.Stringer("factory", p.factory),
		zap.Int("pairs", len(p.pairs)),
	)

	for {
		if p.stopBlock != 0 && next > p.stopBlock {
			p.logger.Info("stop block reached", zap.Uint64("stop_block", p.stopBlock))
			return nil
		}

		head, err := p.head(ctx)
		if err != nil {
			return err
		}

		if next > head {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.pollInterval):
			}
			continue
		}

		to := next + p.batchSize - 1
		if to > head {
			to = head
		}
		if p.stopBlock != 0 && to > p.stopBlock {
			to = p.stopBlock
		}

		if err := p.processRange(ctx, next, to, handler); err != nil {
			return fmt.Errorf("processing blocks %d-%d: %w", next, to, err)
		}
		next = to + 1
	}
}

func (p *Poller) head(ctx context.Context) (uint64, error) {
	var head uint64
	err := p.retry(ctx, func() (err error) {
		head, err = p.client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetching head block: %w", err)
	}
	if head < p.confirmations {
		return 0, nil
	}
	return head - p.confirmations, nil
}

func (p *Poller) processRange(ctx context.Context, from, to uint64, handler Handler) error {
	// factory logs first, so pairs created in this range are part of the pair queries
	factoryLogs, err := p.filterLogs(ctx, from, to, []common.Address{p.factory}, []common.Hash{PairCreatedTopic})
	if err != nil {
		return err
	}
	for _, log := range factoryLogs {
		if len(log.Data) >= 32 {
			p.RegisterPair(eth.Address(common.BytesToAddress(word(log.Data, 0)).Bytes()))
		}
	}

	logs := factoryLogs
	for start := 0; start < len(p.pairs); start += p.addressChunk {
		end := start + p.addressChunk
		if end > len(p.pairs) {
			end = len(p.pairs)
		}

		pairLogs, err := p.filterLogs(ctx, from, to, p.pairs[start:end], pairTopics)
		if err != nil {
			return err
		}
		logs = append(logs, pairLogs...)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	lastEnded := uint64(0)
	var block *exchange.Block
	for _, log := range logs {
		if log.Removed {
			continue
		}

		if block == nil || block.Number != log.BlockNumber {
			if block != nil {
				if err := handler.EndBlock(ctx, *block); err != nil {
					return err
				}
				lastEnded = block.Number
			}

			block, err = p.block(ctx, log.BlockNumber, log.BlockHash)
			if err != nil {
				return err
			}
		}

		signer, err := p.sender(ctx, log)
		if err != nil {
			return err
		}

		ev, err := DecodeLog(log, *block, signer)
		if err != nil {
			p.logger.Warn("skipping undecodable log",
				zap.Uint64("block_num", log.BlockNumber),
				zap.Stringer("trx_hash", log.TxHash),
				zap.Uint("log_index", log.Index),
				zap.Error(err),
			)
			continue
		}
		if ev == nil {
			continue
		}

		if err := handler.HandleEvent(ctx, ev); err != nil {
			return err
		}
	}

	if block != nil {
		if err := handler.EndBlock(ctx, *block); err != nil {
			return err
		}
		lastEnded = block.Number
	}

	// move the cursor over a range tail without logs
	if lastEnded != to {
		tail, err := p.block(ctx, to, common.Hash{})
		if err != nil {
			return err
		}
		if err := handler.EndBlock(ctx, *tail); err != nil {
			return err
		}
	}

	p.logger.Debug("processed block range",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("logs", len(logs)),
		zap.Int("pairs", len(p.pairs)),
	)
	return nil
}

func (p *Poller) filterLogs(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
		Topics:    [][]common.Hash{topics},
	}

	var logs []types.Log
	err := p.retry(ctx, func() (err error) {
		logs, err = p.client.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching logs %d-%d: %w", from, to, err)
	}
	return logs, nil
}

func (p *Poller) block(ctx context.Context, number uint64, hash common.Hash) (*exchange.Block, error) {
	var header *types.Header
	err := p.retry(ctx, func() (err error) {
		header, err = p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching header %d: %w", number, err)
	}

	if hash == (common.Hash{}) {
		hash = header.Hash()
	}

	return &exchange.Block{
		Number:    number,
		Hash:      eth.Hash(hash.Bytes()),
		Timestamp: time.Unix(int64(header.Time), 0).UTC(),
	}, nil
}

func (p *Poller) sender(ctx context.Context, log types.Log) (common.Address, error) {
	if !p.senders {
		return common.Address{}, nil
	}
	if cached, found := p.senderCache.Get(log.TxHash); found {
		return cached.(common.Address), nil
	}

	var signer common.Address
	err := p.retry(ctx, func() error {
		tx, _, err := p.client.TransactionByHash(ctx, log.TxHash)
		if err != nil {
			return err
		}
		signer, err = p.client.TransactionSender(ctx, tx, log.BlockHash, log.TxIndex)
		return err
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving sender of %s: %w", log.TxHash, err)
	}

	p.senderCache.Add(log.TxHash, signer)
	return signer, nil
}

func (p *Poller) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		p.logger.Warn("rpc call failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
}
