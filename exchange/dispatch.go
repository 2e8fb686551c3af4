package exchange

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// HandleEvent routes one decoded event to its handler. A panicking handler is returned as *PanicError.
// Writes a handler issued before failing stay in the store.
func (s *Subgraph) HandleEvent(ctx context.Context, ev Event) (err error) {
	kind := eventKind(ev)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		observeEvent(kind, start, err)
	}()

	switch e := ev.(type) {
	case *FactoryPairCreatedEvent:
		return s.HandleFactoryPairCreatedEvent(ctx, e)
	case *PairTransferEvent:
		return s.HandlePairTransferEvent(ctx, e)
	case *PairMintEvent:
		return s.HandlePairMintEvent(ctx, e)
	case *PairBurnEvent:
		return s.HandlePairBurnEvent(ctx, e)
	case *PairSwapEvent:
		return s.HandlePairSwapEvent(ctx, e)
	case *PairSyncEvent:
		return s.HandlePairSyncEvent(ctx, e)
	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}
}

func eventKind(ev Event) string {
	switch ev.(type) {
	case *FactoryPairCreatedEvent:
		return "pair_created"
	case *PairTransferEvent:
		return "transfer"
	case *PairMintEvent:
		return "mint"
	case *PairBurnEvent:
		return "burn"
	case *PairSwapEvent:
		return "swap"
	case *PairSyncEvent:
		return "sync"
	}
	return "unknown"
}
