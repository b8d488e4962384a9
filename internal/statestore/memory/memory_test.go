package memory

import (
	"context"
	"testing"

	"pkt.systems/tabwise/schema"
)

func key(agent, user, conversation string) schema.ConversationKey {
	return schema.ConversationKey{
		AgentID:        schema.AgentID(agent),
		UserID:         schema.UserID(user),
		ConversationID: schema.ConversationID(conversation),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	k := key("agent-1", "alice", "conv-1")

	if _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	state := schema.TabState{URL: "https://a.example.com", TabIndex: 2, HasIndex: true}
	if err := s.Upsert(ctx, k, state); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := s.Get(ctx, k)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != state {
		t.Fatalf("unexpected state: %+v", got)
	}

	if err := s.Delete(ctx, k); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestUpdateURLPreservesIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	k := key("agent-1", "alice", "conv-1")

	if err := s.Upsert(ctx, k, schema.TabState{URL: "https://a.example.com", TabIndex: 3, HasIndex: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpdateURL(ctx, k, "https://b.example.com"); err != nil {
		t.Fatalf("update url: %v", err)
	}
	got, ok, _ := s.Get(ctx, k)
	if !ok || got.URL != "https://b.example.com" || !got.HasIndex || got.TabIndex != 3 {
		t.Fatalf("unexpected state: %+v ok=%v", got, ok)
	}
}

func TestUpdateURLCreatesIndexlessRecord(t *testing.T) {
	s := New()
	ctx := context.Background()
	k := key("agent-1", "alice", "conv-1")

	if err := s.UpdateURL(ctx, k, "https://a.example.com"); err != nil {
		t.Fatalf("update url: %v", err)
	}
	got, ok, _ := s.Get(ctx, k)
	if !ok || got.HasIndex || got.URL != "https://a.example.com" {
		t.Fatalf("unexpected state: %+v ok=%v", got, ok)
	}
}

func TestOldestForUserSpansAgents(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := key("agent-1", "alice", "conv-1")
	second := key("agent-2", "alice", "conv-2")
	other := key("agent-1", "bob", "conv-3")

	if err := s.Upsert(ctx, first, schema.TabState{URL: "https://first.example.com", TabIndex: 1, HasIndex: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, second, schema.TabState{URL: "https://second.example.com", TabIndex: 2, HasIndex: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, other, schema.TabState{URL: "https://other.example.com"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	oldest, ok, err := s.OldestForUser(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("oldest: ok=%v err=%v", ok, err)
	}
	if oldest.Key != first {
		t.Fatalf("expected first binding, got %+v", oldest.Key)
	}

	// Updating the oldest record must not make it youngest.
	if err := s.Upsert(ctx, first, schema.TabState{URL: "https://updated.example.com", TabIndex: 1, HasIndex: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	oldest, ok, _ = s.OldestForUser(ctx, "alice")
	if !ok || oldest.Key != first {
		t.Fatalf("expected creation order preserved, got %+v", oldest.Key)
	}

	if _, ok, _ := s.OldestForUser(ctx, "nobody"); ok {
		t.Fatalf("expected no binding for unknown user")
	}
}
