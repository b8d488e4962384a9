package chromegw

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"pkt.systems/tabwise/schema"
)

func TestIntArg(t *testing.T) {
	args := map[string]any{
		"float":  float64(3),
		"int":    7,
		"number": json.Number("12"),
		"text":   "4",
	}
	if v, ok := intArg(args, "float"); !ok || v != 3 {
		t.Fatalf("float: got %d ok=%v", v, ok)
	}
	if v, ok := intArg(args, "int"); !ok || v != 7 {
		t.Fatalf("int: got %d ok=%v", v, ok)
	}
	if v, ok := intArg(args, "number"); !ok || v != 12 {
		t.Fatalf("number: got %d ok=%v", v, ok)
	}
	if _, ok := intArg(args, "text"); ok {
		t.Fatalf("expected string to be rejected")
	}
	if _, ok := intArg(args, "missing"); ok {
		t.Fatalf("expected missing arg to be rejected")
	}
}

func TestTextAndErrorResults(t *testing.T) {
	res := textResult("hello")
	if res.IsError {
		t.Fatalf("text result must not be an error")
	}
	items, ok := res.Content.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
	item, _ := items[0].(map[string]any)
	if item["type"] != schema.ContentTypeText || item["text"] != "hello" {
		t.Fatalf("unexpected item: %+v", item)
	}

	failed := errorResult("boom")
	if !failed.IsError {
		t.Fatalf("error result must carry the error flag")
	}
}

func TestSelectorArgAcceptsReferenceNames(t *testing.T) {
	if got := selectorArg(map[string]any{"selector": "#a", "ref": "e1", "element": "Button"}); got != "#a" {
		t.Fatalf("expected selector to win, got %q", got)
	}
	if got := selectorArg(map[string]any{"ref": "e1", "element": "Button"}); got != "e1" {
		t.Fatalf("expected ref before element, got %q", got)
	}
	if got := selectorArg(map[string]any{"element": "Button"}); got != "Button" {
		t.Fatalf("expected element fallback, got %q", got)
	}
	if got := selectorArg(map[string]any{"selector": "  ", "ref": "e1"}); got != "e1" {
		t.Fatalf("expected blank selector to be skipped, got %q", got)
	}
	if got := selectorArg(map[string]any{}); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestClickAcceptsElementRefArguments(t *testing.T) {
	g := &Gateway{}
	res, err := g.invokeClick(context.Background(), map[string]any{
		"element": "Submit button",
		"ref":     "e12",
	})
	if res.IsError {
		t.Fatalf("element/ref arguments must pass validation, got %+v", res)
	}
	if err == nil || !strings.Contains(err.Error(), "no current tab") {
		t.Fatalf("expected tab lookup to run, got %v", err)
	}
}

func TestTypeAcceptsElementRefArguments(t *testing.T) {
	g := &Gateway{}
	res, err := g.invokeType(context.Background(), map[string]any{
		"element": "Search field",
		"ref":     "e3",
		"text":    "hello",
		"submit":  true,
	})
	if res.IsError {
		t.Fatalf("element/ref arguments must pass validation, got %+v", res)
	}
	if err == nil || !strings.Contains(err.Error(), "no current tab") {
		t.Fatalf("expected tab lookup to run, got %v", err)
	}
}

func TestLowestIndexLocked(t *testing.T) {
	g := &Gateway{tabs: map[int]*tabHandle{}}
	if got := g.lowestIndexLocked(); got != 0 {
		t.Fatalf("empty map: got %d", got)
	}
	g.tabs[4] = &tabHandle{}
	g.tabs[2] = &tabHandle{}
	if got := g.lowestIndexLocked(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}
