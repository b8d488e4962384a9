package core

import (
	"encoding/json"
	"regexp"
	"strings"

	"pkt.systems/tabwise/schema"
)

// Current-tab detection tolerates the indicator encodings observed from real
// tool output: boolean flags under several names, "true"/"false" strings,
// 0/1 numbers (or numeric strings), a numeric indicator equal to the tab's
// own index, an object-level current-index field, and a literal "(current)"
// marker in free text. A decisive boolean/0/1 value always beats the
// index-equality fallback.

var (
	currentFlagFields  = []string{"current", "isCurrent", "is_current", "active", "selected"}
	currentIndexFields = []string{"currentIndex", "current_index", "selectedIndex", "selected_index"}
	currentMarkerRe    = regexp.MustCompile(`\(current\)[^()]*\((https?://[^)\s]+|about:blank[^)\s]*)\)`)
)

// extractCurrentURL determines the URL of the current tab, returning false
// when it cannot. Unknown is a normal outcome, not an error.
func extractCurrentURL(content []schema.ContentItem) (string, bool) {
	text := schema.JoinText(content)
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &decoded); err == nil {
		if url, ok := currentURLFromJSON(decoded); ok {
			return url, true
		}
	}
	if match := currentMarkerRe.FindStringSubmatch(text); match != nil {
		return match[1], true
	}
	return "", false
}

func currentURLFromJSON(decoded any) (string, bool) {
	switch value := decoded.(type) {
	case []any:
		return currentURLFromArray(value)
	case map[string]any:
		return currentURLFromObject(value)
	}
	return "", false
}

type currentVerdict int

const (
	verdictNone currentVerdict = iota
	verdictTrue
	verdictFalse
	verdictSelf
)

func currentURLFromArray(elements []any) (string, bool) {
	selfURL := ""
	selfFound := false
	for position, element := range elements {
		fields, ok := element.(map[string]any)
		if !ok {
			continue
		}
		ownIndex := position
		if index, ok := numericField(fields, "index", "id"); ok && index >= 0 {
			ownIndex = index
		}
		switch classifyCurrent(fields, ownIndex) {
		case verdictTrue:
			return urlField(fields)
		case verdictSelf:
			if url, ok := urlField(fields); ok && !selfFound {
				selfURL = url
				selfFound = true
			}
		}
	}
	if selfFound {
		return selfURL, true
	}
	return "", false
}

// classifyCurrent scans the indicator fields in a fixed order; the first
// decisive value ends the scan. A numeric indicator that merely equals the
// tab's own index is recorded as a self-reference candidate.
func classifyCurrent(fields map[string]any, ownIndex int) currentVerdict {
	sawSelf := false
	for _, name := range currentFlagFields {
		value, present := fields[name]
		if !present {
			continue
		}
		switch typed := value.(type) {
		case bool:
			if typed {
				return verdictTrue
			}
			return verdictFalse
		case string:
			switch strings.ToLower(strings.TrimSpace(typed)) {
			case "true":
				return verdictTrue
			case "false":
				return verdictFalse
			}
		}
		if number, ok := asInt(value); ok {
			switch number {
			case 1:
				return verdictTrue
			case 0:
				return verdictFalse
			default:
				if number == ownIndex {
					sawSelf = true
				}
			}
		}
	}
	if sawSelf {
		return verdictSelf
	}
	return verdictNone
}

func currentURLFromObject(fields map[string]any) (string, bool) {
	nested, ok := fields["tabs"].([]any)
	if !ok {
		return "", false
	}
	currentIndex, ok := numericField(fields, currentIndexFields...)
	if !ok {
		return currentURLFromArray(nested)
	}
	// Prefer an element whose own index field matches; fall back to treating
	// the value as a raw array position.
	for _, element := range nested {
		elementFields, ok := element.(map[string]any)
		if !ok {
			continue
		}
		if index, ok := numericField(elementFields, "index", "id"); ok && index == currentIndex {
			return urlField(elementFields)
		}
	}
	if currentIndex >= 0 && currentIndex < len(nested) {
		if elementFields, ok := nested[currentIndex].(map[string]any); ok {
			return urlField(elementFields)
		}
	}
	return "", false
}

func urlField(fields map[string]any) (string, bool) {
	url, ok := fields["url"].(string)
	if !ok || strings.TrimSpace(url) == "" {
		return "", false
	}
	return url, true
}
