// Package chromegw implements the browser tool gateway and catalog against a
// locally launched Chrome instance via chromedp. It serves the same tool
// surface a remote browser MCP server would, so the service core does not
// care which backend is wired in.
package chromegw

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/schema"
)

// Options configure the local Chrome gateway.
type Options struct {
	// Headless launches Chrome without a window. On by default for servers.
	Headless bool
	Logger   pslog.Logger
}

// Gateway drives a single local Chrome process. It implements both
// core.Gateway and core.Catalog. Tab indices are assigned in creation order
// and stay stable for the lifetime of a tab.
type Gateway struct {
	log pslog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	tabs    map[int]*tabHandle
	byTarg  map[target.ID]int
	nextIdx int
	current int
}

type tabHandle struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

var _ core.Gateway = (*Gateway)(nil)
var _ core.Catalog = (*Gateway)(nil)

// New launches Chrome and attaches to its initial tab as index 0.
func New(opts Options) (*Gateway, error) {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromegw: start chrome: %w", err)
	}
	g := &Gateway{
		log:           log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[int]*tabHandle),
		byTarg:        make(map[target.ID]int),
	}
	if err := g.refreshTabs(); err != nil {
		g.Close()
		return nil, err
	}
	g.log.Debug("chrome started", "tabs", len(g.tabs))
	return g, nil
}

// Close shuts the browser down.
func (g *Gateway) Close() error {
	g.mu.Lock()
	for _, h := range g.tabs {
		h.cancel()
	}
	g.tabs = make(map[int]*tabHandle)
	g.byTarg = make(map[target.ID]int)
	g.mu.Unlock()
	g.browserCancel()
	g.allocCancel()
	return nil
}

// refreshTabs reconciles the index map against the live target list. New
// targets get the next free index, closed ones are dropped. Callers must not
// hold g.mu.
func (g *Gateway) refreshTabs() error {
	infos, err := chromedp.Targets(g.browserCtx)
	if err != nil {
		return fmt.Errorf("chromegw: list targets: %w", err)
	}
	live := make(map[target.ID]bool)
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		live[info.TargetID] = true
		if _, ok := g.byTarg[info.TargetID]; ok {
			continue
		}
		idx := g.nextIdx
		g.nextIdx++
		tabCtx, tabCancel := chromedp.NewContext(g.browserCtx, chromedp.WithTargetID(info.TargetID))
		g.tabs[idx] = &tabHandle{id: info.TargetID, ctx: tabCtx, cancel: tabCancel}
		g.byTarg[info.TargetID] = idx
	}
	for idx, h := range g.tabs {
		if live[h.id] {
			continue
		}
		h.cancel()
		delete(g.byTarg, h.id)
		delete(g.tabs, idx)
	}
	if _, ok := g.tabs[g.current]; !ok {
		g.current = g.lowestIndexLocked()
	}
	return nil
}

func (g *Gateway) lowestIndexLocked() int {
	low := -1
	for idx := range g.tabs {
		if low < 0 || idx < low {
			low = idx
		}
	}
	if low < 0 {
		return 0
	}
	return low
}

func (g *Gateway) currentTab() (*tabHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.tabs[g.current]
	if !ok {
		return nil, fmt.Errorf("chromegw: no current tab")
	}
	return h, nil
}

func (g *Gateway) tabByIndex(idx int) (*tabHandle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.tabs[idx]
	return h, ok
}

// Invoke dispatches a tool call to the local browser.
func (g *Gateway) Invoke(ctx context.Context, call core.GatewayCall) (schema.RawToolResult, error) {
	switch call.ToolName {
	case "browser_tabs":
		return g.invokeTabs(ctx, call.Arguments)
	case "browser_navigate":
		return g.invokeNavigate(ctx, call.Arguments)
	case "browser_navigate_back":
		return g.invokeNavigateBack(ctx)
	case "browser_take_screenshot":
		return g.invokeScreenshot(ctx)
	case "browser_resize":
		return g.invokeResize(ctx, call.Arguments)
	case "browser_click":
		return g.invokeClick(ctx, call.Arguments)
	case "browser_type":
		return g.invokeType(ctx, call.Arguments)
	case "browser_press_key":
		return g.invokePressKey(ctx, call.Arguments)
	case "browser_snapshot":
		return g.invokeSnapshot(ctx)
	case "browser_evaluate":
		return g.invokeEvaluate(ctx, call.Arguments)
	}
	return errorResult(fmt.Sprintf("unknown tool: %s", call.ToolName)), nil
}

// ListTools reports the static local catalog.
func (g *Gateway) ListTools(ctx context.Context, agentID schema.AgentID) ([]schema.CatalogTool, error) {
	names := []string{
		"browser_tabs",
		"browser_navigate",
		"browser_navigate_back",
		"browser_take_screenshot",
		"browser_resize",
		"browser_click",
		"browser_type",
		"browser_press_key",
		"browser_snapshot",
		"browser_evaluate",
	}
	out := make([]schema.CatalogTool, 0, len(names))
	for _, name := range names {
		out = append(out, schema.CatalogTool{Name: name, CatalogID: schema.BrowserCatalogID})
	}
	return out, nil
}

type tabEntry struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Current bool   `json:"current"`
}

func (g *Gateway) invokeTabs(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	action, _ := args["action"].(string)
	switch action {
	case "", "list":
		return g.listTabs()
	case "select":
		idx, ok := intArg(args, "index")
		if !ok {
			return errorResult("select requires an index"), nil
		}
		h, found := g.tabByIndex(idx)
		if !found {
			return errorResult(fmt.Sprintf("no tab at index %d", idx)), nil
		}
		if err := chromedp.Run(h.ctx, chromedp.ActionFunc(func(c context.Context) error {
			return target.ActivateTarget(h.id).Do(c)
		})); err != nil {
			return errorResult(fmt.Sprintf("activate tab %d: %v", idx, err)), nil
		}
		g.mu.Lock()
		g.current = idx
		g.mu.Unlock()
		return g.listTabs()
	case "new":
		if err := chromedp.Run(g.browserCtx, chromedp.ActionFunc(func(c context.Context) error {
			_, err := target.CreateTarget("about:blank").Do(c)
			return err
		})); err != nil {
			return errorResult(fmt.Sprintf("create tab: %v", err)), nil
		}
		if err := g.refreshTabs(); err != nil {
			return schema.RawToolResult{}, err
		}
		g.mu.Lock()
		high := -1
		for idx := range g.tabs {
			if idx > high {
				high = idx
			}
		}
		if high >= 0 {
			g.current = high
		}
		g.mu.Unlock()
		return g.listTabs()
	case "close":
		idx, ok := intArg(args, "index")
		if !ok {
			g.mu.Lock()
			idx = g.current
			g.mu.Unlock()
		}
		h, found := g.tabByIndex(idx)
		if !found {
			return errorResult(fmt.Sprintf("no tab at index %d", idx)), nil
		}
		if err := chromedp.Run(g.browserCtx, chromedp.ActionFunc(func(c context.Context) error {
			return target.CloseTarget(h.id).Do(c)
		})); err != nil {
			return errorResult(fmt.Sprintf("close tab %d: %v", idx, err)), nil
		}
		if err := g.refreshTabs(); err != nil {
			return schema.RawToolResult{}, err
		}
		return g.listTabs()
	}
	return errorResult(fmt.Sprintf("unknown tabs action: %s", action)), nil
}

func (g *Gateway) listTabs() (schema.RawToolResult, error) {
	if err := g.refreshTabs(); err != nil {
		return schema.RawToolResult{}, err
	}
	infos, err := chromedp.Targets(g.browserCtx)
	if err != nil {
		return schema.RawToolResult{}, fmt.Errorf("chromegw: list targets: %w", err)
	}
	byID := make(map[target.ID]*target.Info)
	for _, info := range infos {
		byID[info.TargetID] = info
	}
	g.mu.Lock()
	entries := make([]tabEntry, 0, len(g.tabs))
	for idx, h := range g.tabs {
		entry := tabEntry{Index: idx, Current: idx == g.current}
		if info := byID[h.id]; info != nil {
			entry.Title = info.Title
			entry.URL = info.URL
		}
		entries = append(entries, entry)
	}
	g.mu.Unlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	payload, err := json.Marshal(entries)
	if err != nil {
		return schema.RawToolResult{}, err
	}
	return textResult(string(payload)), nil
}

func (g *Gateway) invokeNavigate(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	url, _ := args["url"].(string)
	if strings.TrimSpace(url) == "" {
		return errorResult("navigate requires a url"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	var loc string
	if err := chromedp.Run(h.ctx,
		chromedp.Navigate(url),
		chromedp.Location(&loc),
	); err != nil {
		return errorResult(fmt.Sprintf("navigate: %v", err)), nil
	}
	return textResult("Page URL: " + loc), nil
}

func (g *Gateway) invokeNavigateBack(ctx context.Context) (schema.RawToolResult, error) {
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	var loc string
	if err := chromedp.Run(h.ctx,
		chromedp.NavigateBack(),
		chromedp.Location(&loc),
	); err != nil {
		return errorResult(fmt.Sprintf("navigate back: %v", err)), nil
	}
	return textResult("Page URL: " + loc), nil
}

func (g *Gateway) invokeScreenshot(ctx context.Context) (schema.RawToolResult, error) {
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	var buf []byte
	if err := chromedp.Run(h.ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return errorResult(fmt.Sprintf("screenshot: %v", err)), nil
	}
	return schema.RawToolResult{Content: []any{map[string]any{
		"type":     schema.ContentTypeImage,
		"data":     base64.StdEncoding.EncodeToString(buf),
		"mimeType": "image/jpeg",
	}}}, nil
}

func (g *Gateway) invokeResize(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	width, wok := intArg(args, "width")
	height, hok := intArg(args, "height")
	if !wok || !hok || width <= 0 || height <= 0 {
		return errorResult("resize requires width and height"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	if err := chromedp.Run(h.ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return errorResult(fmt.Sprintf("resize: %v", err)), nil
	}
	return textResult(fmt.Sprintf("Viewport set to %dx%d", width, height)), nil
}

func (g *Gateway) invokeClick(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	selector := selectorArg(args)
	if selector == "" {
		return errorResult("click requires a selector"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	if err := chromedp.Run(h.ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return errorResult(fmt.Sprintf("click %s: %v", selector, err)), nil
	}
	return textResult("Clicked " + selector), nil
}

func (g *Gateway) invokeType(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	selector := selectorArg(args)
	text, _ := args["text"].(string)
	submit, _ := args["submit"].(bool)
	if selector == "" {
		return errorResult("type requires a selector"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	actions := []chromedp.Action{chromedp.SendKeys(selector, text, chromedp.ByQuery)}
	if submit {
		actions = append(actions, chromedp.KeyEvent("\r"))
	}
	if err := chromedp.Run(h.ctx, actions...); err != nil {
		return errorResult(fmt.Sprintf("type into %s: %v", selector, err)), nil
	}
	if submit {
		return textResult("Typed into " + selector + " and submitted"), nil
	}
	return textResult("Typed into " + selector), nil
}

func (g *Gateway) invokePressKey(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	key, _ := args["key"].(string)
	if key == "" {
		return errorResult("press_key requires a key"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	if err := chromedp.Run(h.ctx, chromedp.KeyEvent(key)); err != nil {
		return errorResult(fmt.Sprintf("press key %s: %v", key, err)), nil
	}
	return textResult("Pressed " + key), nil
}

func (g *Gateway) invokeSnapshot(ctx context.Context) (schema.RawToolResult, error) {
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	var html string
	if err := chromedp.Run(h.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return errorResult(fmt.Sprintf("snapshot: %v", err)), nil
	}
	return textResult(html), nil
}

func (g *Gateway) invokeEvaluate(ctx context.Context, args map[string]any) (schema.RawToolResult, error) {
	code, _ := args["function"].(string)
	if strings.TrimSpace(code) == "" {
		return errorResult("evaluate requires a function"), nil
	}
	h, err := g.currentTab()
	if err != nil {
		return schema.RawToolResult{}, err
	}
	var result any
	if err := chromedp.Run(h.ctx, chromedp.Evaluate("("+code+")()", &result)); err != nil {
		return errorResult(fmt.Sprintf("evaluate: %v", err)), nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluate result: %v", err)), nil
	}
	return textResult(string(payload)), nil
}

// selectorArg accepts the element reference under any of the names browser
// tool callers use: a plain selector, an element ref, or a described element.
func selectorArg(args map[string]any) string {
	for _, name := range []string{"selector", "ref", "element"} {
		if v, _ := args[name].(string); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func textResult(text string) schema.RawToolResult {
	return schema.RawToolResult{Content: []any{map[string]any{
		"type": schema.ContentTypeText,
		"text": text,
	}}}
}

func errorResult(text string) schema.RawToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
