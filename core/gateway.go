package core

import (
	"context"

	"pkt.systems/tabwise/schema"
)

// GatewayCall describes one remote tool invocation.
type GatewayCall struct {
	CallID         string
	ToolName       string
	Arguments      map[string]any
	AgentID        schema.AgentID
	ConversationID schema.ConversationID
	User           schema.UserContext
}

// Gateway executes browser tools against the shared remote browser session.
// Implementations derive authentication from the call's user context.
type Gateway interface {
	Invoke(ctx context.Context, call GatewayCall) (schema.RawToolResult, error)
}

// Catalog lists the tools available to an agent.
type Catalog interface {
	ListTools(ctx context.Context, agentID schema.AgentID) ([]schema.CatalogTool, error)
}

// StoredTab is a persisted tab binding together with its key.
type StoredTab struct {
	Key   schema.ConversationKey
	State schema.TabState
}

// StateStore persists tab bindings per conversation across process restarts.
// There is no cross-process lock; last write wins.
type StateStore interface {
	Get(ctx context.Context, key schema.ConversationKey) (schema.TabState, bool, error)
	Upsert(ctx context.Context, key schema.ConversationKey, state schema.TabState) error
	UpdateURL(ctx context.Context, key schema.ConversationKey, url string) error
	Delete(ctx context.Context, key schema.ConversationKey) error
	// OldestForUser returns the user's oldest binding across all agents,
	// ordered by creation time ascending.
	OldestForUser(ctx context.Context, userID schema.UserID) (StoredTab, bool, error)
}
