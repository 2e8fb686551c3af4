// Package mongo persists entity deltas with one collection per entity table.
package mongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	cursorCollection = "_cursors"

	// rawField keeps the exact JSON encoding, the typed fields are for querying only
	rawField = "_raw"
)

var tables = []string{
	entity.TableFactory,
	entity.TableBundle,
	entity.TableToken,
	entity.TablePair,
	entity.TablePairTokenLookup,
	entity.TableUser,
	entity.TableTransaction,
	entity.TableMint,
	entity.TableBurn,
	entity.TableSwap,
	entity.TableLiquidityPosition,
	entity.TableLiquidityPositionSnapshot,
	entity.TableUniswapDayData,
	entity.TablePairDayData,
	entity.TablePairHourData,
	entity.TableTokenDayData,
	entity.TableTokenHourData,
}

type Sink struct {
	client   *mongo.Client
	database *mongo.Database
	name     string
	timeout  time.Duration
	logger   *zap.Logger
}

type Option func(s *Sink)

func WithName(name string) Option {
	return func(s *Sink) { s.name = name }
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Sink) { s.timeout = timeout }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

func New(ctx context.Context, address, databaseName string, opts ...Option) (*Sink, error) {
	s := &Sink{name: "default", timeout: 30 * time.Second, logger: zlog}
	for _, opt := range opts {
		opt(s)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(address))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s.client = client
	s.database = client.Database(databaseName)

	s.logger.Info("connected to mongo", zap.String("database", databaseName), zap.String("cursor", s.name))
	return s, nil
}

// Apply upserts or deletes each entity, then moves the cursor. Mongo offers no cross collection
// atomicity without a replica set, so the cursor is written last.
func (s *Sink) Apply(ctx context.Context, cursor sink.Cursor, deltas []*state.Delta) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, delta := range deltas {
		collection := s.database.Collection(delta.Table)
		filter := bson.M{"_id": delta.ID}

		if delta.Op == state.OpDelete {
			if _, err := collection.DeleteOne(ctx, filter); err != nil {
				return fmt.Errorf("deleting %s %s: %w", delta.Table, delta.ID, err)
			}
			continue
		}

		doc, err := document(delta.NewValue, cursor.BlockNumber)
		if err != nil {
			return err
		}
		if _, err := collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("saving %s %s: %w", delta.Table, delta.ID, err)
		}
	}

	_, err := s.database.Collection(cursorCollection).ReplaceOne(ctx,
		bson.M{"_id": s.name},
		bson.M{
			"_id":             s.name,
			"block_number":    int64(cursor.BlockNumber),
			"block_hash":      cursor.BlockHash,
			"block_timestamp": cursor.Timestamp,
		},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}

	s.logger.Debug("block persisted", zap.Uint64("block_num", cursor.BlockNumber), zap.Int("deltas", len(deltas)))
	return nil
}

type cursorDocument struct {
	BlockNumber    int64     `bson:"block_number"`
	BlockHash      string    `bson:"block_hash"`
	BlockTimestamp time.Time `bson:"block_timestamp"`
}

func (s *Sink) Restore(ctx context.Context, store *state.Store) (*sink.Cursor, error) {
	var cur cursorDocument
	err := s.database.Collection(cursorCollection).FindOne(ctx, bson.M{"_id": s.name}).Decode(&cur)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor: %w", err)
	}

	count := 0
	for _, table := range tables {
		n, err := s.restoreTable(ctx, store, table)
		if err != nil {
			return nil, err
		}
		count += n
	}

	s.logger.Info("store restored from mongo", zap.Int("entities", count), zap.Int64("block_num", cur.BlockNumber))

	return &sink.Cursor{
		BlockNumber: uint64(cur.BlockNumber),
		BlockHash:   cur.BlockHash,
		Timestamp:   cur.BlockTimestamp,
	}, nil
}

func (s *Sink) restoreTable(ctx context.Context, store *state.Store, table string) (int, error) {
	opts := options.Find().
		SetProjection(bson.M{rawField: 1}).
		SetSort(bson.D{{Key: "_block_number", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.database.Collection(table).Find(ctx, bson.M{}, opts)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", table, err)
	}
	defer cur.Close(ctx)

	count := 0
	for cur.Next(ctx) {
		var row struct {
			ID  string `bson:"_id"`
			Raw string `bson:"_raw"`
		}
		if err := cur.Decode(&row); err != nil {
			return count, fmt.Errorf("decoding %s row: %w", table, err)
		}

		ent, err := sink.Decode(table, row.ID, []byte(row.Raw))
		if err != nil {
			return count, err
		}
		store.Restore(ent)
		count++
	}
	return count, cur.Err()
}

func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// document turns an entity into its stored form: every JSON field typed for querying, plus the raw
// encoding.
func document(ent state.Entity, blockNumber uint64) (bson.M, error) {
	data, err := sink.Encode(ent)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding %s %s fields: %w", ent.TableName(), ent.GetID(), err)
	}

	doc := bson.M{}
	for name, value := range fields {
		doc[name] = bsonValue(value)
	}
	delete(doc, "id")
	doc["_id"] = ent.GetID()
	doc["_block_number"] = int64(blockNumber)
	doc[rawField] = string(data)
	return doc, nil
}

func bsonValue(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if d, err := primitive.ParseDecimal128(v.String()); err == nil {
			return d
		}
		return v.String()
	case []interface{}:
		out := make(primitive.A, len(v))
		for i, item := range v {
			out[i] = bsonValue(item)
		}
		return out
	case map[string]interface{}:
		out := bson.M{}
		for key, item := range v {
			out[key] = bsonValue(item)
		}
		return out
	}
	return value
}
