package schema

import "strings"

// NormalizeConversationKey validates the identifiers that scope tab state.
func NormalizeConversationKey(agentID AgentID, userID UserID, conversationID ConversationID) (ConversationKey, error) {
	agent := strings.TrimSpace(string(agentID))
	if agent == "" {
		return ConversationKey{}, ErrInvalidAgent
	}
	user := strings.TrimSpace(string(userID))
	if user == "" {
		return ConversationKey{}, ErrInvalidUser
	}
	conversation := strings.TrimSpace(string(conversationID))
	if conversation == "" {
		return ConversationKey{}, ErrInvalidConversation
	}
	return ConversationKey{
		AgentID:        AgentID(agent),
		UserID:         UserID(user),
		ConversationID: ConversationID(conversation),
	}, nil
}

// IsBlankURL reports whether a URL is empty or an about:blank placeholder.
// Matching is a case-insensitive prefix check so variants like
// "about:blank#blocked" count as blank.
func IsBlankURL(url string) bool {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(trimmed), "about:blank")
}
