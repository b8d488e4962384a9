package core

import (
	"context"
	"testing"
	"time"

	"pkt.systems/tabwise/schema"
)

func TestSelectionGateClaimAndShare(t *testing.T) {
	gate := newSelectionGate()
	key := testKey()

	op, owned := gate.claim(key)
	if !owned {
		t.Fatalf("expected first claim to own the slot")
	}
	shared, ownedAgain := gate.claim(key)
	if ownedAgain {
		t.Fatalf("expected second claim to share")
	}
	if shared != op {
		t.Fatalf("expected shared claim to return the in-flight op")
	}

	other := schema.ConversationKey{AgentID: "agent-2", UserID: "bob", ConversationID: "conv-9"}
	if _, owned := gate.claim(other); !owned {
		t.Fatalf("expected unrelated key to own its own slot")
	}
}

func TestSelectionGateReleaseGuardsIdentity(t *testing.T) {
	gate := newSelectionGate()
	key := testKey()

	first, _ := gate.claim(key)
	gate.release(key, first)

	second, owned := gate.claim(key)
	if !owned {
		t.Fatalf("expected fresh claim after release")
	}
	// Releasing the stale op must not evict the newer claim.
	gate.release(key, first)
	if current, owned := gate.claim(key); owned || current != second {
		t.Fatalf("expected second op to survive stale release")
	}
	gate.release(key, second)
	if _, owned := gate.claim(key); !owned {
		t.Fatalf("expected slot free after matching release")
	}
}

func TestPendingSelectionWaitDeliversResult(t *testing.T) {
	op := &pendingSelection{done: make(chan struct{})}
	go op.finish(schema.SelectTabResponse{Success: true, TabIndex: 7})

	result, err := op.wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !result.Success || result.TabIndex != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPendingSelectionWaitHonorsContext(t *testing.T) {
	op := &pendingSelection{done: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := op.wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
