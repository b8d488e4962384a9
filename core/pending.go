package core

import (
	"context"
	"sync"

	"pkt.systems/tabwise/schema"
)

// pendingSelection is one in-flight tab selection. Waiters block on done and
// read the result afterwards.
type pendingSelection struct {
	done   chan struct{}
	result schema.SelectTabResponse
}

func (p *pendingSelection) finish(result schema.SelectTabResponse) {
	p.result = result
	close(p.done)
}

func (p *pendingSelection) wait(ctx context.Context) (schema.SelectTabResponse, error) {
	select {
	case <-ctx.Done():
		return schema.SelectTabResponse{}, ctx.Err()
	case <-p.done:
		return p.result, nil
	}
}

// selectionGate deduplicates concurrent selections per conversation so at
// most one remote select/create sequence runs at a time per key. Unrelated
// keys never block each other.
type selectionGate struct {
	mu      sync.Mutex
	pending map[schema.ConversationKey]*pendingSelection
}

func newSelectionGate() *selectionGate {
	return &selectionGate{pending: make(map[schema.ConversationKey]*pendingSelection)}
}

// claim returns the in-flight selection for key, or registers a fresh one
// and reports ownership.
func (g *selectionGate) claim(key schema.ConversationKey) (*pendingSelection, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if current, ok := g.pending[key]; ok {
		return current, false
	}
	fresh := &pendingSelection{done: make(chan struct{})}
	g.pending[key] = fresh
	return fresh, true
}

// release removes the slot only while it still holds op: a later caller may
// have claimed the key after op finished, and its entry must survive.
func (g *selectionGate) release(key schema.ConversationKey, op *pendingSelection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[key] == op {
		delete(g.pending, key)
	}
}
