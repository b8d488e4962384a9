package schema

// Tab lifecycle.

// SelectTabRequest asks the orchestrator to ensure a tab is bound to the
// conversation, reusing or creating one as needed.
type SelectTabRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	InitialURL     string
}

// SelectTabResponse reports the bound tab. Selection failures are data, not
// errors: Success false carries a human-readable Error.
type SelectTabResponse struct {
	Success  bool
	TabIndex int
	Error    string
}

// CloseTabRequest asks to close the conversation's tab and clear its state.
type CloseTabRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
}

// CloseTabResponse reports the close outcome. State is cleared even when the
// remote close failed.
type CloseTabResponse struct {
	Success bool
	Error   string
}

// Navigation.

// NavigateRequest navigates the conversation's tab to a URL.
type NavigateRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	URL            string
}

// NavigateResponse reports the authoritative URL after navigation, which may
// differ from the requested one after redirects.
type NavigateResponse struct {
	URL string
}

// NavigateBackRequest navigates the conversation's tab back in history.
type NavigateBackRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
}

// NavigateBackResponse reports the back-navigation outcome. A remote refusal
// (no history) is Success false, not an error.
type NavigateBackResponse struct {
	Success bool
	URL     string
	Error   string
}

// CurrentURLRequest asks for the URL of the current tab.
type CurrentURLRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
}

// CurrentURLResponse reports the current URL when it could be determined.
type CurrentURLResponse struct {
	URL   string
	Found bool
}

// Capture and interaction.

// ScreenshotRequest captures the currently visible tab.
type ScreenshotRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
}

// ScreenshotResponse carries the captured image and the independently
// resolved current URL. Screenshot is nil and Error set when the browser tool
// returned no image.
type ScreenshotResponse struct {
	Screenshot *ContentItem
	URL        string
	Error      string
}

// ClickRequest clicks an element in the conversation's tab.
type ClickRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	Element        string
	Ref            string
}

// ClickResponse carries the tool's text output.
type ClickResponse struct {
	Output string
}

// TypeRequest types text into an element in the conversation's tab.
type TypeRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	Element        string
	Ref            string
	Text           string
	Submit         bool
}

// TypeResponse carries the tool's text output.
type TypeResponse struct {
	Output string
}

// PressKeyRequest presses a keyboard key in the conversation's tab.
type PressKeyRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	Key            string
}

// PressKeyResponse carries the tool's text output.
type PressKeyResponse struct {
	Output string
}

// SnapshotRequest captures an accessibility snapshot of the tab.
type SnapshotRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
}

// SnapshotResponse carries the snapshot text.
type SnapshotResponse struct {
	Snapshot string
}

// RunCodeRequest evaluates code in the conversation's tab.
type RunCodeRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	Code           string
}

// RunCodeResponse carries the evaluation output.
type RunCodeResponse struct {
	Output string
}

// State sync.

// SyncNavigationRequest refreshes persisted tab state from the output of a
// navigate tool the agent invoked on its own.
type SyncNavigationRequest struct {
	AgentID        AgentID
	ConversationID ConversationID
	User           UserContext
	Content        []ContentItem
}

// SyncNavigationResponse reports whether a URL was extracted and persisted.
type SyncNavigationResponse struct {
	URL    string
	Synced bool
}
