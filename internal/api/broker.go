package api

import (
    "sync"
)

// Event is a work-order lifecycle event fanned out to SSE and WebSocket
// subscribers.
type Event struct {
    Type string
    Data map[string]any
}

type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // workOrderId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(workOrderID string) chan Event {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[workOrderID] == nil {
        b.subs[workOrderID] = map[chan Event]struct{}{}
    }
    b.subs[workOrderID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(workOrderID string, ch chan Event) {
    b.mu.Lock()
    if m := b.subs[workOrderID]; m != nil {
        delete(m, ch)
        if len(m) == 0 {
            delete(b.subs, workOrderID)
        }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(workOrderID string, evt Event) {
    b.mu.Lock()
    m := b.subs[workOrderID]
    for ch := range m {
        select {
        case ch <- evt:
        default:
        }
    }
    b.mu.Unlock()
}
