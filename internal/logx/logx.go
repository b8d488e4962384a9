package logx

import (
	"context"

	"pkt.systems/pslog"

	"pkt.systems/tabwise/schema"
)

type contextKey int

const (
	agentKey contextKey = iota
	userKey
	conversationKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithUser annotates the logger with the user id if present.
func WithUser(ctx context.Context, userID schema.UserID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if userID != "" {
		if current, ok := ctx.Value(userKey).(schema.UserID); ok && current == userID {
			return log
		}
		log = log.With("user", userID)
	}
	return log
}

// WithKey annotates the logger with the conversation key's identifiers,
// skipping fields already present on the context.
func WithKey(ctx context.Context, key schema.ConversationKey) pslog.Logger {
	log := WithUser(ctx, key.UserID)
	if key.AgentID != "" {
		if current, ok := ctx.Value(agentKey).(schema.AgentID); !ok || current != key.AgentID {
			log = log.With("agent", key.AgentID)
		}
	}
	if key.ConversationID != "" {
		if current, ok := ctx.Value(conversationKey).(schema.ConversationID); !ok || current != key.ConversationID {
			log = log.With("conversation", key.ConversationID)
		}
	}
	return log
}

// ContextWithKey stores the key markers on the context for log
// de-duplication.
func ContextWithKey(ctx context.Context, key schema.ConversationKey) context.Context {
	if ctx == nil {
		return ctx
	}
	if key.AgentID != "" {
		ctx = context.WithValue(ctx, agentKey, key.AgentID)
	}
	if key.UserID != "" {
		ctx = context.WithValue(ctx, userKey, key.UserID)
	}
	if key.ConversationID != "" {
		ctx = context.WithValue(ctx, conversationKey, key.ConversationID)
	}
	return ctx
}

// ContextWithKeyLogger attaches the logger and key markers to the context.
func ContextWithKeyLogger(ctx context.Context, log pslog.Logger, key schema.ConversationKey) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithKey(ctx, key)
}
