package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"pkt.systems/tabwise/schema"
)

type fakeCatalog struct {
	mu    sync.Mutex
	tools []schema.CatalogTool
	err   error
	calls int
}

func (c *fakeCatalog) ListTools(ctx context.Context, agentID schema.AgentID) ([]schema.CatalogTool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.tools, nil
}

func (c *fakeCatalog) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func browserCatalog(names ...string) *fakeCatalog {
	tools := make([]schema.CatalogTool, 0, len(names))
	for _, name := range names {
		tools = append(tools, schema.CatalogTool{Name: name, CatalogID: schema.BrowserCatalogID})
	}
	return &fakeCatalog{tools: tools}
}

func allBrowserTools() *fakeCatalog {
	return browserCatalog(
		"browser_tabs",
		"browser_navigate",
		"browser_navigate_back",
		"browser_take_screenshot",
		"browser_resize",
		"browser_click",
		"browser_type",
		"browser_press_key",
		"browser_snapshot",
		"browser_evaluate",
	)
}

// fakeGateway records every call and answers through a per-test respond
// function.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []GatewayCall
	respond func(call GatewayCall) (schema.RawToolResult, error)
}

func (g *fakeGateway) Invoke(ctx context.Context, call GatewayCall) (schema.RawToolResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	respond := g.respond
	g.mu.Unlock()
	if respond == nil {
		return textRaw(""), nil
	}
	return respond(call)
}

func (g *fakeGateway) callsFor(tool, action string) []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []GatewayCall
	for _, call := range g.calls {
		if call.ToolName != tool {
			continue
		}
		if action != "" {
			if got, _ := call.Arguments["action"].(string); got != action {
				continue
			}
		}
		out = append(out, call)
	}
	return out
}

func textRaw(text string) schema.RawToolResult {
	return schema.RawToolResult{Content: []any{map[string]any{"type": "text", "text": text}}}
}

func jsonRaw(t *testing.T, value any) schema.RawToolResult {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal fake payload: %v", err)
	}
	return textRaw(string(data))
}

type fakeStates struct {
	mu      sync.Mutex
	records map[schema.ConversationKey]schema.TabState
	order   []schema.ConversationKey

	getErr    error
	upsertErr error
	updateErr error
	deleteErr error

	updateURLs []string
}

func newFakeStates() *fakeStates {
	return &fakeStates{records: map[schema.ConversationKey]schema.TabState{}}
}

func (s *fakeStates) seed(key schema.ConversationKey, state schema.TabState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = state
}

func (s *fakeStates) Get(ctx context.Context, key schema.ConversationKey) (schema.TabState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return schema.TabState{}, false, s.getErr
	}
	state, ok := s.records[key]
	return state, ok, nil
}

func (s *fakeStates) Upsert(ctx context.Context, key schema.ConversationKey, state schema.TabState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = state
	return nil
}

func (s *fakeStates) UpdateURL(ctx context.Context, key schema.ConversationKey, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updateURLs = append(s.updateURLs, url)
	state := s.records[key]
	state.URL = url
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = state
	return nil
}

func (s *fakeStates) Delete(ctx context.Context, key schema.ConversationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStates) OldestForUser(ctx context.Context, userID schema.UserID) (StoredTab, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.order {
		if key.UserID != userID {
			continue
		}
		if state, ok := s.records[key]; ok {
			return StoredTab{Key: key, State: state}, true, nil
		}
	}
	return StoredTab{}, false, nil
}

func (s *fakeStates) stored(key schema.ConversationKey) (schema.TabState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.records[key]
	return state, ok
}

func (s *fakeStates) updatedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.updateURLs...)
}

func testKey() schema.ConversationKey {
	return schema.ConversationKey{AgentID: "agent-1", UserID: "alice", ConversationID: "conv-1"}
}

func newTestService(t *testing.T, gw *fakeGateway, catalog *fakeCatalog, states *fakeStates, cfg schema.ServiceConfig) Service {
	t.Helper()
	svc, err := NewService(cfg, ServiceDeps{
		Gateway: gw,
		Catalog: catalog,
		States:  states,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}
