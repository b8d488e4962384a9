package schema

import "strings"

// Content item kinds produced by browser tools.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// ContentItem is one entry of a tool result: text or a base64-encoded image.
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// TextContent builds a text content item.
func TextContent(text string) ContentItem {
	return ContentItem{Type: ContentTypeText, Text: text}
}

// ImageContent builds an image content item from base64 data.
func ImageContent(data, mimeType string) ContentItem {
	return ContentItem{Type: ContentTypeImage, Data: data, MIMEType: mimeType}
}

// ToolResult is a normalized tool invocation result.
type ToolResult struct {
	Content []ContentItem
	IsError bool
}

// RawToolResult is the gateway-shaped result before normalization. Content
// holds decoded JSON of unspecified shape; the invocation adapter converts it
// into a ToolResult.
type RawToolResult struct {
	Content any
	IsError bool
}

// Text joins all text content items with newlines.
func (r ToolResult) Text() string {
	return JoinText(r.Content)
}

// FirstImage returns the first image content item, if any.
func (r ToolResult) FirstImage() (ContentItem, bool) {
	for _, item := range r.Content {
		if item.Type == ContentTypeImage {
			return item, true
		}
	}
	return ContentItem{}, false
}

// JoinText joins the text items of a content list with newlines.
func JoinText(content []ContentItem) string {
	var parts []string
	for _, item := range content {
		if item.Type == ContentTypeText {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}
