package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"pkt.systems/tabwise/schema"
)

// toolCall identifies one tool invocation on behalf of a conversation.
type toolCall struct {
	Tool           string
	Args           map[string]any
	AgentID        schema.AgentID
	ConversationID schema.ConversationID
	User           schema.UserContext
}

// toolInvoker wraps the gateway, tagging every call with a unique id and
// normalizing the loosely-shaped remote result. It does not retry.
type toolInvoker struct {
	gateway Gateway
}

func (i *toolInvoker) invoke(ctx context.Context, call toolCall) (schema.ToolResult, error) {
	raw, err := i.gateway.Invoke(ctx, GatewayCall{
		CallID:         uuid.NewString(),
		ToolName:       call.Tool,
		Arguments:      call.Args,
		AgentID:        call.AgentID,
		ConversationID: call.ConversationID,
		User:           call.User,
	})
	if err != nil {
		return schema.ToolResult{}, err
	}
	return normalizeToolResult(raw), nil
}

// normalizeToolResult converts a raw gateway result into the tagged content
// list the parsers operate on. Content that is not already a list is wrapped
// as a single text item holding its JSON serialization.
func normalizeToolResult(raw schema.RawToolResult) schema.ToolResult {
	result := schema.ToolResult{IsError: raw.IsError}
	switch content := raw.Content.(type) {
	case nil:
		return result
	case []schema.ContentItem:
		result.Content = content
		return result
	case []any:
		for _, entry := range content {
			result.Content = append(result.Content, contentItemFromAny(entry))
		}
		return result
	default:
		result.Content = []schema.ContentItem{schema.TextContent(jsonText(content))}
		return result
	}
}

func contentItemFromAny(entry any) schema.ContentItem {
	fields, ok := entry.(map[string]any)
	if !ok {
		return schema.TextContent(jsonText(entry))
	}
	switch fields["type"] {
	case schema.ContentTypeText:
		text, _ := fields["text"].(string)
		return schema.TextContent(text)
	case schema.ContentTypeImage:
		data, _ := fields["data"].(string)
		mimeType, _ := fields["mimeType"].(string)
		return schema.ImageContent(data, mimeType)
	default:
		return schema.TextContent(jsonText(entry))
	}
}

func jsonText(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
