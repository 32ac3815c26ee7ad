package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    woID := "wo1"
    ch := b.Subscribe(woID)

    evt := Event{Type: "workorder.assigned", Data: map[string]any{"vendorId": "v1"}}
    b.Publish(woID, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type {
            t.Fatalf("got type %s, want %s", got.Type, evt.Type)
        }
        if got.Data["vendorId"].(string) != "v1" {
            t.Fatalf("bad payload: %+v", got.Data)
        }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(woID, ch)
    select {
    case _, ok := <-ch:
        if ok {
            t.Fatal("channel should be closed after unsubscribe")
        }
    case <-time.After(50 * time.Millisecond):
        // acceptable if already drained and closed
    }
}

func TestBrokerIsolatesWorkOrders(t *testing.T) {
    b := NewBroker()
    ch1 := b.Subscribe("wo1")
    ch2 := b.Subscribe("wo2")
    defer b.Unsubscribe("wo1", ch1)
    defer b.Unsubscribe("wo2", ch2)

    b.Publish("wo1", Event{Type: "workorder.escalated"})

    select {
    case <-ch1:
    case <-time.After(200 * time.Millisecond):
        t.Fatal("subscriber for wo1 did not receive event")
    }
    select {
    case evt := <-ch2:
        t.Fatalf("wo2 subscriber received foreign event: %+v", evt)
    case <-time.After(50 * time.Millisecond):
    }
}
