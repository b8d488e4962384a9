package core

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pkt.systems/tabwise/schema"
)

const (
	toolCacheSize = 100
	toolCacheTTL  = 30 * time.Second
)

// toolResolver finds browser tool names for an agent through a read-through
// catalog cache. A stale read within the TTL is acceptable.
type toolResolver struct {
	catalog Catalog
	cache   *expirable.LRU[schema.AgentID, []schema.CatalogTool]
}

func newToolResolver(catalog Catalog) *toolResolver {
	return &toolResolver{
		catalog: catalog,
		cache:   expirable.NewLRU[schema.AgentID, []schema.CatalogTool](toolCacheSize, nil, toolCacheTTL),
	}
}

// find returns the first tool from the builtin browser catalog whose
// lowercased name satisfies match, or "" when none does.
func (r *toolResolver) find(ctx context.Context, agentID schema.AgentID, match func(string) bool) (string, error) {
	tools, err := r.tools(ctx, agentID)
	if err != nil {
		return "", err
	}
	for _, tool := range tools {
		if tool.CatalogID != schema.BrowserCatalogID {
			continue
		}
		if match(strings.ToLower(tool.Name)) {
			return tool.Name, nil
		}
	}
	return "", nil
}

func (r *toolResolver) tools(ctx context.Context, agentID schema.AgentID) ([]schema.CatalogTool, error) {
	if cached, ok := r.cache.Get(agentID); ok {
		return cached, nil
	}
	tools, err := r.catalog.ListTools(ctx, agentID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(agentID, tools)
	return tools, nil
}

// Tool name predicates. Remote servers expose the builtin browser tools
// under varying prefixes ("browser_navigate", "playwright__navigate",
// "mcp__playwright__browser_navigate"), so matching is suffix- and
// keyword-based on the lowercased name.

func matchNavigate(name string) bool {
	if strings.Contains(name, "_back") || strings.Contains(name, "_forward") {
		return false
	}
	return strings.HasSuffix(name, "browser_navigate") ||
		strings.HasSuffix(name, "__navigate") ||
		(strings.Contains(name, "playwright") && strings.Contains(name, "navigate"))
}

func matchNavigateBack(name string) bool {
	return strings.HasSuffix(name, "browser_navigate_back") ||
		strings.HasSuffix(name, "__navigate_back") ||
		strings.Contains(name, "navigate_back") ||
		(strings.Contains(name, "playwright") && strings.Contains(name, "back"))
}

func matchTabs(name string) bool {
	return strings.HasSuffix(name, "browser_tabs") ||
		strings.HasSuffix(name, "__tabs") ||
		(strings.Contains(name, "playwright") && strings.Contains(name, "tab"))
}

func matchScreenshot(name string) bool {
	return strings.HasSuffix(name, "browser_take_screenshot") ||
		strings.HasSuffix(name, "__screenshot") ||
		strings.Contains(name, "screenshot")
}

func matchClick(name string) bool {
	return strings.HasSuffix(name, "browser_click") ||
		strings.HasSuffix(name, "__click") ||
		(strings.Contains(name, "playwright") && strings.Contains(name, "click"))
}

func matchType(name string) bool {
	return strings.HasSuffix(name, "browser_type") ||
		strings.HasSuffix(name, "__type") ||
		(strings.Contains(name, "playwright") && strings.Contains(name, "type"))
}

func matchPressKey(name string) bool {
	return strings.HasSuffix(name, "browser_press_key") ||
		strings.HasSuffix(name, "__press_key") ||
		strings.Contains(name, "press_key")
}

func matchSnapshot(name string) bool {
	return strings.HasSuffix(name, "browser_snapshot") ||
		strings.HasSuffix(name, "__snapshot") ||
		strings.Contains(name, "snapshot")
}

func matchResize(name string) bool {
	return strings.HasSuffix(name, "browser_resize") ||
		strings.HasSuffix(name, "__resize") ||
		strings.Contains(name, "resize")
}

func matchRunCode(name string) bool {
	return strings.HasSuffix(name, "browser_evaluate") ||
		strings.HasSuffix(name, "__evaluate") ||
		strings.Contains(name, "run_code")
}
