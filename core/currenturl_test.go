package core

import "testing"

func TestExtractCurrentURLBooleanFlag(t *testing.T) {
	url, ok := extractCurrentURL(textContent(`[
		{"index": 0, "url": "https://other.example.com", "current": false},
		{"index": 1, "url": "https://current.example.com", "current": true}
	]`))
	if !ok || url != "https://current.example.com" {
		t.Fatalf("expected current url, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLStringFlag(t *testing.T) {
	url, ok := extractCurrentURL(textContent(`[
		{"index": 0, "url": "https://a.example.com", "active": "false"},
		{"index": 1, "url": "https://b.example.com", "active": "True"}
	]`))
	if !ok || url != "https://b.example.com" {
		t.Fatalf("expected b.example.com, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLNumericFlag(t *testing.T) {
	url, ok := extractCurrentURL(textContent(`[
		{"index": 0, "url": "https://a.example.com", "selected": 0},
		{"index": 1, "url": "https://b.example.com", "selected": 1}
	]`))
	if !ok || url != "https://b.example.com" {
		t.Fatalf("expected b.example.com, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLSelfReferenceFallback(t *testing.T) {
	// A numeric indicator equal to the tab's own index counts only when no
	// tab carries a decisive value.
	url, ok := extractCurrentURL(textContent(`[
		{"index": 2, "url": "https://self.example.com", "current": 2},
		{"index": 3, "url": "https://other.example.com"}
	]`))
	if !ok || url != "https://self.example.com" {
		t.Fatalf("expected self-reference url, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLDecisiveBeatsSelfReference(t *testing.T) {
	url, ok := extractCurrentURL(textContent(`[
		{"index": 2, "url": "https://self.example.com", "current": 2},
		{"index": 3, "url": "https://decisive.example.com", "current": true}
	]`))
	if !ok || url != "https://decisive.example.com" {
		t.Fatalf("expected decisive url, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLFirstDecisiveFieldWins(t *testing.T) {
	// "current" is scanned before "active"; its decisive false ends the scan
	// for that tab.
	url, ok := extractCurrentURL(textContent(`[
		{"index": 0, "url": "https://a.example.com", "current": false, "active": true},
		{"index": 1, "url": "https://b.example.com", "current": true}
	]`))
	if !ok || url != "https://b.example.com" {
		t.Fatalf("expected b.example.com, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLObjectCurrentIndex(t *testing.T) {
	url, ok := extractCurrentURL(textContent(`{
		"currentIndex": 4,
		"tabs": [
			{"index": 0, "url": "https://a.example.com"},
			{"index": 4, "url": "https://d.example.com"}
		]
	}`))
	if !ok || url != "https://d.example.com" {
		t.Fatalf("expected d.example.com, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLObjectPositionalIndex(t *testing.T) {
	// No element carries index 1 as its own field, so the value falls back
	// to a raw array position.
	url, ok := extractCurrentURL(textContent(`{
		"selected_index": 1,
		"tabs": [
			{"url": "https://a.example.com"},
			{"url": "https://b.example.com"}
		]
	}`))
	if !ok || url != "https://b.example.com" {
		t.Fatalf("expected b.example.com, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLTextMarker(t *testing.T) {
	url, ok := extractCurrentURL(textContent("- 0: [Start] (about:blank)\n- 1: (current) [Docs] (https://docs.example.com)"))
	if !ok || url != "https://docs.example.com" {
		t.Fatalf("expected docs url, got %q ok=%v", url, ok)
	}
}

func TestExtractCurrentURLUnknown(t *testing.T) {
	if url, ok := extractCurrentURL(textContent(`[{"index": 0, "url": "https://a.example.com"}]`)); ok {
		t.Fatalf("expected unknown, got %q", url)
	}
	if url, ok := extractCurrentURL(textContent("no markers here")); ok {
		t.Fatalf("expected unknown, got %q", url)
	}
	if url, ok := extractCurrentURL(nil); ok {
		t.Fatalf("expected unknown for empty content, got %q", url)
	}
}

func TestExtractCurrentURLEmptyURLNotFound(t *testing.T) {
	if url, ok := extractCurrentURL(textContent(`[{"index": 0, "url": "", "current": true}]`)); ok {
		t.Fatalf("expected unknown for empty url, got %q", url)
	}
}
