package state

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Entity is anything the store can hold, keyed by (TableName, GetID).
type Entity interface {
	TableName() string
	GetID() string
	Exists() bool
	SetExists(exists bool)
}

// Indexed entities expose the fields GetWhere can query on, as field name -> value.
type Indexed interface {
	Indexes() map[string]string
}

type deepCopier interface {
	DeepCopy()
}

type key struct {
	table string
	id    string
}

func (k key) String() string { return k.table + ":" + k.id }

type indexKey struct {
	table string
	field string
	value string
}

// Store is the in-memory entity graph. Reads hand out copies and writes store copies, so a caller never
// observes a partial update made by someone else. Every mutation is recorded as a Delta until Flush.
type Store struct {
	Name string

	kv      map[key]Entity
	Deltas  []*Delta
	indexes map[indexKey][]string

	lastOrdinal uint64
}

func New(name string) *Store {
	return &Store{
		Name:    name,
		kv:      make(map[key]Entity),
		indexes: make(map[indexKey][]string),
	}
}

// Load fills `ent` with the stored value for its table and id and flags it as existing. A miss leaves
// `ent` untouched with Exists() false.
func (s *Store) Load(ent Entity) error {
	k := key{ent.TableName(), ent.GetID()}
	stored, found := s.kv[k]
	if !found {
		ent.SetExists(false)
		return nil
	}

	dst := reflect.ValueOf(ent)
	src := reflect.ValueOf(stored)
	if dst.Type() != src.Type() {
		return fmt.Errorf("loading %s: stored type %s does not match %s", k, src.Type(), dst.Type())
	}

	dst.Elem().Set(src.Elem())
	if dc, ok := ent.(deepCopier); ok {
		dc.DeepCopy()
	}
	ent.SetExists(true)
	return nil
}

// Get returns a copy of the stored entity.
func (s *Store) Get(table, id string) (Entity, bool) {
	stored, found := s.kv[key{table, id}]
	if !found {
		return nil, false
	}
	return clone(stored), true
}

// Save upserts a full copy of `ent`.
func (s *Store) Save(ent Entity) {
	k := key{ent.TableName(), ent.GetID()}
	value := clone(ent)
	value.SetExists(true)

	old, found := s.kv[k]
	op := OpCreate
	if found {
		op = OpUpdate
	}

	s.applyDelta(&Delta{
		Op:       op,
		Ordinal:  s.nextOrdinal(),
		Table:    k.table,
		ID:       k.id,
		OldValue: old,
		NewValue: value,
	})
	ent.SetExists(true)
}

// DeleteUnsafe removes an entity and its index entries. Deleting a missing entity is a no-op.
func (s *Store) DeleteUnsafe(table, id string) {
	k := key{table, id}
	old, found := s.kv[k]
	if !found {
		return
	}

	s.applyDelta(&Delta{
		Op:       OpDelete,
		Ordinal:  s.nextOrdinal(),
		Table:    table,
		ID:       id,
		OldValue: old,
	})
}

// GetWhere returns copies of the entities of `table` whose indexed `field` equals `value`, ordered by
// first insertion.
func (s *Store) GetWhere(table, field, value string) []Entity {
	ids := s.indexes[indexKey{table, field, value}]
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if ent, found := s.kv[key{table, id}]; found {
			out = append(out, clone(ent))
		}
	}
	return out
}

// GetWhereIDs is GetWhere without the copies.
func (s *Store) GetWhereIDs(table, field, value string) []string {
	ids := s.indexes[indexKey{table, field, value}]
	return append([]string(nil), ids...)
}

// IDs lists the ids stored for `table`, sorted.
func (s *Store) IDs(table string) []string {
	var ids []string
	for k := range s.kv {
		if k.table == table {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int {
	return len(s.kv)
}

// Flush hands out the deltas accumulated since the last Flush and resets the ordinal.
func (s *Store) Flush() []*Delta {
	deltas := s.Deltas
	s.Deltas = nil
	s.lastOrdinal = 0
	return deltas
}

// Restore puts an entity in the store without recording a delta, used to rehydrate from a sink.
func (s *Store) Restore(ent Entity) {
	value := clone(ent)
	value.SetExists(true)
	k := key{value.TableName(), value.GetID()}
	prev := s.kv[k]
	s.kv[k] = value
	s.index(k, prev, value)
}

func (s *Store) Print(logger *zap.Logger) {
	if len(s.Deltas) == 0 {
		return
	}
	for _, delta := range s.Deltas {
		logger.Debug("store delta",
			zap.String("store", s.Name),
			zap.String("op", strings.ToUpper(string(delta.Op))),
			zap.Uint64("ordinal", delta.Ordinal),
			zap.String("table", delta.Table),
			zap.String("id", delta.ID),
		)
	}
}

func (s *Store) nextOrdinal() uint64 {
	s.lastOrdinal++
	return s.lastOrdinal
}

func (s *Store) applyDelta(delta *Delta) {
	k := key{delta.Table, delta.ID}
	switch delta.Op {
	case OpCreate, OpUpdate:
		s.kv[k] = delta.NewValue
	case OpDelete:
		delete(s.kv, k)
	}
	s.index(k, delta.OldValue, delta.NewValue)
	s.Deltas = append(s.Deltas, delta)
}

func (s *Store) index(k key, prev, next Entity) {
	var oldFields, newFields map[string]string
	if ix, ok := prev.(Indexed); ok {
		oldFields = ix.Indexes()
	}
	if ix, ok := next.(Indexed); ok {
		newFields = ix.Indexes()
	}

	for field, value := range oldFields {
		if nv, found := newFields[field]; found && nv == value {
			continue
		}
		s.unindex(indexKey{k.table, field, value}, k.id)
	}

	for field, value := range newFields {
		if ov, found := oldFields[field]; found && ov == value {
			continue
		}
		ik := indexKey{k.table, field, value}
		s.indexes[ik] = append(s.indexes[ik], k.id)
	}
}

func (s *Store) unindex(ik indexKey, id string) {
	ids := s.indexes[ik]
	for i, candidate := range ids {
		if candidate == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.indexes, ik)
		return
	}
	s.indexes[ik] = ids
}

func clone(ent Entity) Entity {
	src := reflect.ValueOf(ent)
	dst := reflect.New(src.Type().Elem())
	dst.Elem().Set(src.Elem())

	out := dst.Interface().(Entity)
	if dc, ok := out.(deepCopier); ok {
		dc.DeepCopy()
	}
	return out
}
