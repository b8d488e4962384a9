package core

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"pkt.systems/tabwise/schema"
)

// The tabs tool's list output has no contractual shape: it has shipped as a
// plain JSON array, an object with a nested tabs array, and free text. The
// parser tries each in priority order and never fails; an unrecognized
// payload yields an empty list.

var (
	tabLineRe  = regexp.MustCompile(`(?:^|[\s-])(\d+):`)
	tabTitleRe = regexp.MustCompile(`\[([^\]]*)\]`)
	tabURLRe   = regexp.MustCompile(`\((https?://[^)\s]+|about:blank[^)\s]*)\)`)
)

func parseTabsList(content []schema.ContentItem) []schema.BrowserTab {
	text := schema.JoinText(content)
	if tabs, ok := parseTabsJSON(text); ok {
		return tabs
	}
	return parseTabsLines(text)
}

func parseTabsJSON(text string) ([]schema.BrowserTab, bool) {
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &decoded); err != nil {
		return nil, false
	}
	elements, ok := tabElements(decoded)
	if !ok {
		return nil, false
	}
	tabs := make([]schema.BrowserTab, 0, len(elements))
	for position, element := range elements {
		tab := schema.BrowserTab{Index: position}
		fields, ok := element.(map[string]any)
		if !ok {
			tabs = append(tabs, tab)
			continue
		}
		if index, ok := numericField(fields, "index", "id"); ok && index >= 0 {
			tab.Index = index
		}
		if title, ok := fields["title"].(string); ok {
			tab.Title = title
		}
		if url, ok := fields["url"].(string); ok {
			tab.URL = url
		}
		tabs = append(tabs, tab)
	}
	return tabs, true
}

// tabElements accepts either a top-level array or an object wrapping one
// under "tabs".
func tabElements(decoded any) ([]any, bool) {
	switch value := decoded.(type) {
	case []any:
		return value, true
	case map[string]any:
		if nested, ok := value["tabs"].([]any); ok {
			return nested, true
		}
	}
	return nil, false
}

// numericField reads the first of the named fields as a non-negative-capable
// integer, accepting both JSON numbers and numeric strings.
func numericField(fields map[string]any, names ...string) (int, bool) {
	for _, name := range names {
		value, present := fields[name]
		if !present {
			continue
		}
		if number, ok := asInt(value); ok {
			return number, true
		}
	}
	return 0, false
}

func asInt(value any) (int, bool) {
	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case string:
		number, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		return number, true
	}
	return 0, false
}

func parseTabsLines(text string) []schema.BrowserTab {
	var tabs []schema.BrowserTab
	for _, line := range strings.Split(text, "\n") {
		match := tabLineRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		tab := schema.BrowserTab{Index: index}
		if title := tabTitleRe.FindStringSubmatch(line); title != nil {
			tab.Title = title[1]
		}
		if url := tabURLRe.FindStringSubmatch(line); url != nil {
			tab.URL = url[1]
		}
		tabs = append(tabs, tab)
	}
	if tabs == nil {
		return []schema.BrowserTab{}
	}
	return tabs
}

func tabAt(tabs []schema.BrowserTab, index int) (schema.BrowserTab, bool) {
	for _, tab := range tabs {
		if tab.Index == index {
			return tab, true
		}
	}
	return schema.BrowserTab{}, false
}

func lowestBlankTab(tabs []schema.BrowserTab) (schema.BrowserTab, bool) {
	best := schema.BrowserTab{}
	found := false
	for _, tab := range tabs {
		if !schema.IsBlankURL(tab.URL) {
			continue
		}
		if !found || tab.Index < best.Index {
			best = tab
			found = true
		}
	}
	return best, found
}

func maxTabIndex(tabs []schema.BrowserTab) int {
	max := 0
	for _, tab := range tabs {
		if tab.Index > max {
			max = tab.Index
		}
	}
	return max
}
