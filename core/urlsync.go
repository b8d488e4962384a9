package core

import (
	"regexp"

	"pkt.systems/tabwise/schema"
)

// Navigate tools emit their destination in unstructured forms: a code
// snippet such as page.goto('https://example.com') or a "Page URL:" marker
// line. Not every navigate result contains either; an unmatched input is a
// normal no-op.

var (
	gotoCallRe    = regexp.MustCompile(`goto\(\s*['"]([^'"]+)['"]`)
	pageURLMarkRe = regexp.MustCompile(`Page URL:\s*(\S+)`)
)

// extractNavigatedURL pulls a navigated-to URL out of navigate tool output,
// trying the goto-call pattern first and the "Page URL:" marker second.
func extractNavigatedURL(content []schema.ContentItem) (string, bool) {
	text := schema.JoinText(content)
	if match := gotoCallRe.FindStringSubmatch(text); match != nil {
		return match[1], true
	}
	if match := pageURLMarkRe.FindStringSubmatch(text); match != nil {
		return match[1], true
	}
	return "", false
}
