package core

import "testing"

func TestExtractNavigatedURLFromGotoCall(t *testing.T) {
	url, ok := extractNavigatedURL(textContent("await page.goto('https://navigated.example.com');\nPage URL: https://stale.example.com"))
	if !ok || url != "https://navigated.example.com" {
		t.Fatalf("expected goto url to win, got %q ok=%v", url, ok)
	}
}

func TestExtractNavigatedURLFromGotoDoubleQuotes(t *testing.T) {
	url, ok := extractNavigatedURL(textContent(`page.goto("https://dq.example.com")`))
	if !ok || url != "https://dq.example.com" {
		t.Fatalf("expected double-quoted goto url, got %q ok=%v", url, ok)
	}
}

func TestExtractNavigatedURLFromPageURLMarker(t *testing.T) {
	url, ok := extractNavigatedURL(textContent("Navigated successfully.\nPage URL: https://page-url.example.com\nPage Title: Example"))
	if !ok || url != "https://page-url.example.com" {
		t.Fatalf("expected marker url, got %q ok=%v", url, ok)
	}
}

func TestExtractNavigatedURLNoMatch(t *testing.T) {
	if url, ok := extractNavigatedURL(textContent("clicked the button")); ok {
		t.Fatalf("expected no match, got %q", url)
	}
	if url, ok := extractNavigatedURL(nil); ok {
		t.Fatalf("expected no match for empty content, got %q", url)
	}
}
