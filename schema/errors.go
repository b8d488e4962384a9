package schema

import "errors"

var (
	// ErrDisabled indicates the browser tab subsystem is turned off.
	ErrDisabled = errors.New("browser tabs are disabled")
	// ErrInvalidAgent indicates an invalid agent identifier.
	ErrInvalidAgent = errors.New("invalid agent")
	// ErrInvalidUser indicates an invalid user identifier.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidConversation indicates an invalid conversation identifier.
	ErrInvalidConversation = errors.New("invalid conversation")
	// ErrInvalidURL indicates a missing or malformed URL argument.
	ErrInvalidURL = errors.New("invalid url")
	// ErrToolUnavailable indicates no matching browser tool is configured for
	// the agent. Surfaced as a client error: the agent lacks the capability.
	ErrToolUnavailable = errors.New("browser tool not available")
	// ErrBrowserAction indicates the remote browser tool reported a failure.
	ErrBrowserAction = errors.New("browser action failed")
)
