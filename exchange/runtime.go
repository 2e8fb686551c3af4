package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.uber.org/zap"
)

// Runtime is the dispatch loop side of the subgraph: it logs and drops failed events so the stream
// never halts, and flushes each block's deltas to the sink.
type Runtime struct {
	subgraph *Subgraph
	sink     sink.Sink
	logger   *zap.Logger
}

func NewRuntime(subgraph *Subgraph, s sink.Sink) *Runtime {
	return &Runtime{
		subgraph: subgraph,
		sink:     s,
		logger:   subgraph.Log,
	}
}

func (r *Runtime) HandleEvent(ctx context.Context, ev Event) error {
	err := r.subgraph.HandleEvent(ctx, ev)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}

	base := ev.Base()
	fields := []zap.Field{
		zap.String("event", eventKind(ev)),
		zap.Uint64("block_num", base.Block.Number),
		zap.Stringer("trx_hash", base.Transaction.Hash),
		zap.Uint64("log_index", base.LogIndex),
		zap.Stringer("address", base.LogAddress),
		zap.Error(err),
	}

	var panicErr *PanicError
	switch {
	case errors.Is(err, ErrMissingPrerequisite):
		r.logger.Warn("skipping event, missing prerequisite", fields...)
	case errors.Is(err, ErrUnresolvedDecimals):
		r.logger.Error("pair creation aborted", fields...)
	case errors.As(err, &panicErr):
		r.logger.Error("handler panicked", append(fields, zap.ByteString("stack", panicErr.Stack))...)
	default:
		r.logger.Error("handler failed", fields...)
	}

	return nil
}

func (r *Runtime) EndBlock(ctx context.Context, block Block) error {
	if r.logger.Core().Enabled(zap.DebugLevel) {
		r.subgraph.Print(r.logger)
	}
	deltas := state.Compact(r.subgraph.Flush())

	cursor := sink.Cursor{
		BlockNumber: block.Number,
		BlockHash:   block.Hash.Pretty(),
		Timestamp:   block.Timestamp,
	}
	if err := r.sink.Apply(ctx, cursor, deltas); err != nil {
		return fmt.Errorf("applying block %d deltas: %w", block.Number, err)
	}

	HeadBlockNumber.Set(float64(block.Number))

	r.logger.Debug("block flushed", zap.Uint64("block_num", block.Number), zap.Int("deltas", len(deltas)))
	return nil
}
