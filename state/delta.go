package state

type Op string

// Same op letters as the Debezium change format.
const (
	OpCreate Op = "c"
	OpUpdate Op = "u"
	OpDelete Op = "d"
)

type Delta struct {
	Op       Op
	Ordinal  uint64 // sorting key within a block
	Table    string
	ID       string
	OldValue Entity
	NewValue Entity
}

// Compact reduces a block's deltas to one per entity, ordered by first appearance. OldValue is the value
// before the block and NewValue the value after it. An entity created then deleted within the block is
// dropped.
func Compact(deltas []*Delta) []*Delta {
	type entry struct {
		first *Delta
		last  *Delta
	}

	var order []key
	seen := map[key]*entry{}
	for _, d := range deltas {
		k := key{d.Table, d.ID}
		e, found := seen[k]
		if !found {
			e = &entry{first: d}
			seen[k] = e
			order = append(order, k)
		}
		e.last = d
	}

	out := make([]*Delta, 0, len(order))
	for _, k := range order {
		e := seen[k]
		created := e.first.Op == OpCreate

		switch e.last.Op {
		case OpDelete:
			if created {
				continue
			}
			out = append(out, &Delta{Op: OpDelete, Ordinal: e.last.Ordinal, Table: k.table, ID: k.id, OldValue: e.first.OldValue})
		default:
			op := OpUpdate
			if created {
				op = OpCreate
			}
			out = append(out, &Delta{Op: op, Ordinal: e.last.Ordinal, Table: k.table, ID: k.id, OldValue: e.first.OldValue, NewValue: e.last.NewValue})
		}
	}
	return out
}
