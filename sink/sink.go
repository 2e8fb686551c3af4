package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.uber.org/zap"
)

// Cursor is the last block whose deltas a sink applied.
type Cursor struct {
	BlockNumber uint64
	BlockHash   string
	Timestamp   time.Time
}

// Sink persists the compacted deltas of one block together with its cursor.
type Sink interface {
	Apply(ctx context.Context, cursor Cursor, deltas []*state.Delta) error
	Close() error
}

// Restorer is a Sink able to rehydrate a store from what it persisted, returning the cursor to resume
// from, nil when empty.
type Restorer interface {
	Restore(ctx context.Context, store *state.Store) (*Cursor, error)
}

// Noop drops everything, the store stays in memory only.
type Noop struct{}

func (Noop) Apply(_ context.Context, cursor Cursor, deltas []*state.Delta) error {
	zlog.Debug("dropping block deltas", zap.Uint64("block_num", cursor.BlockNumber), zap.Int("deltas", len(deltas)))
	return nil
}

func (Noop) Close() error { return nil }

// Encode is the JSON document every sink stores for an entity.
func Encode(ent state.Entity) ([]byte, error) {
	data, err := json.Marshal(ent)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", ent.TableName(), ent.GetID(), err)
	}
	return data, nil
}

func Decode(table, id string, data []byte) (state.Entity, error) {
	ent, err := entity.New(table, id)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ent); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", table, id, err)
	}
	return ent, nil
}
