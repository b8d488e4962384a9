package schema

// AgentID identifies an agent configuration.
type AgentID string

// UserID identifies a user.
type UserID string

// ConversationID identifies a conversation. It is the isolation key for
// browser tab state.
type ConversationID string

// ConversationKey scopes all tab state to one conversation.
type ConversationKey struct {
	AgentID        AgentID
	UserID         UserID
	ConversationID ConversationID
}

// TabState is the persisted tab binding for a conversation. HasIndex false
// models a record without a tab index. TabIndex may be stale; callers verify
// it against a fresh listing before use.
type TabState struct {
	URL      string
	TabIndex int
	HasIndex bool
}

// BrowserTab is one entry from a fresh tabs listing. Listings are never
// cached; the index is the tab's identity for the lifetime of the remote
// browser process.
type BrowserTab struct {
	Index int
	Title string
	URL   string
}

// CatalogTool is one tool available to an agent.
type CatalogTool struct {
	Name      string
	CatalogID string
}

// BrowserCatalogID marks the builtin browser automation catalog. Tool name
// resolution only considers tools from this catalog.
const BrowserCatalogID = "builtin_browser"

// UserContext carries the identity of the requesting user on a call.
type UserContext struct {
	UserID    UserID
	AuthToken string
}
