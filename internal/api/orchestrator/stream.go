package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Emitter serializes progress events onto one channel. Sends block until the
// consumer reads or the context ends; events are never silently dropped.
// After End the emitter goes inert, so exactly one terminal event is ever
// delivered and nothing follows it.
type Emitter struct {
	ch   chan types.StreamEvent
	ctx  context.Context
	mu   sync.Mutex
	done bool
	once sync.Once
}

func NewEmitter(ctx context.Context, buffer int) *Emitter {
	return &Emitter{ch: make(chan types.StreamEvent, buffer), ctx: ctx}
}

// Events is the consumer side. Closed after the terminal event.
func (e *Emitter) Events() <-chan types.StreamEvent {
	return e.ch
}

// Emit stamps and delivers one event. No-op once the stream has ended.
func (e *Emitter) Emit(event types.StreamEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.send(event)
}

// End delivers the terminal end event and closes the stream. Safe to call
// more than once; only the first call emits.
func (e *Emitter) End(data interface{}) {
	e.once.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.done = true
		e.send(types.StreamEvent{
			Type:    types.EventTypeEnd,
			Data:    data,
			IsFinal: true,
		})
		close(e.ch)
	})
}

func (e *Emitter) send(event types.StreamEvent) {
	event.Timestamp = time.Now().UTC()
	event.EventID = uuid.New().String()
	select {
	case e.ch <- event:
	case <-e.ctx.Done():
	}
}
