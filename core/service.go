package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"pkt.systems/pslog"

	"pkt.systems/tabwise/internal/logx"
	"pkt.systems/tabwise/schema"
)

// service implements conversation-scoped tab orchestration against a shared
// remote browser.
type service struct {
	cfg     schema.ServiceConfig
	invoker *toolInvoker
	tools   *toolResolver
	states  StateStore
	logger  pslog.Logger
	gate    *selectionGate

	debugScreenshot bool
	debugTabSync    bool
}

// NewService constructs the tab orchestration service.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if deps.States == nil {
		return nil, errors.New("state store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:             cfg,
		invoker:         &toolInvoker{gateway: deps.Gateway},
		tools:           newToolResolver(deps.Catalog),
		states:          deps.States,
		logger:          logger,
		gate:            newSelectionGate(),
		debugScreenshot: boolEnv("TABWISE_DEBUG_SCREENSHOT"),
		debugTabSync:    boolEnv("TABWISE_DEBUG_TABSYNC"),
	}, nil
}

func boolEnv(name string) bool {
	value, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && value
}

// scope carries the conversation key plus the caller identity of one request.
type scope struct {
	key  schema.ConversationKey
	user schema.UserContext
}

func (s *service) scope(agentID schema.AgentID, user schema.UserContext, conversationID schema.ConversationID) (scope, error) {
	key, err := schema.NormalizeConversationKey(agentID, user.UserID, conversationID)
	if err != nil {
		return scope{}, err
	}
	return scope{key: key, user: user}, nil
}

func (sc scope) call(tool string, args map[string]any) toolCall {
	return toolCall{
		Tool:           tool,
		Args:           args,
		AgentID:        sc.key.AgentID,
		ConversationID: sc.key.ConversationID,
		User:           sc.user,
	}
}

// SelectTab ensures a tab is bound to the conversation. Concurrent calls for
// the same key share one in-flight selection; a caller that observes a failed
// shared attempt gets one fresh attempt of its own instead of inheriting the
// failure.
func (s *service) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.SelectTabResponse{}, err
	}
	log := logx.WithKey(ctx, sc.key)
	for {
		op, owned := s.gate.claim(sc.key)
		if !owned {
			shared, err := op.wait(ctx)
			if err != nil {
				return schema.SelectTabResponse{}, err
			}
			if shared.Success {
				return shared, nil
			}
			log.Warn("tab select shared attempt failed", "err", shared.Error)
			continue
		}
		return s.runOwnedSelection(ctx, log, sc, req.InitialURL, op), nil
	}
}

// runOwnedSelection executes the selection sequence, releases the gate slot
// guarded by op identity, and then publishes the result to waiters. Release
// comes first so a waiter that sees a failed result claims a fresh slot
// instead of re-observing this finished one.
func (s *service) runOwnedSelection(ctx context.Context, log pslog.Logger, sc scope, initialURL string, op *pendingSelection) (out schema.SelectTabResponse) {
	defer func() {
		if r := recover(); r != nil {
			out = schema.SelectTabResponse{Error: fmt.Sprintf("tab selection panic: %v", r)}
		}
		s.gate.release(sc.key, op)
		op.finish(out)
	}()
	return s.runSelection(ctx, log, sc, initialURL)
}

func selectFailure(err error) schema.SelectTabResponse {
	return schema.SelectTabResponse{Error: err.Error()}
}

func (s *service) runSelection(ctx context.Context, log pslog.Logger, sc scope, initialURL string) schema.SelectTabResponse {
	tabsTool, err := s.tools.find(ctx, sc.key.AgentID, matchTabs)
	if err != nil {
		return selectFailure(err)
	}
	if tabsTool == "" {
		// Some agents have no multi-tab capability; degrade to the single
		// implicit tab instead of failing.
		log.Debug("tabs tool unavailable, assuming single tab")
		return schema.SelectTabResponse{Success: true, TabIndex: 0}
	}

	stored, hasStored, err := s.states.Get(ctx, sc.key)
	if err != nil {
		return selectFailure(err)
	}
	tabs, err := s.listTabs(ctx, sc, tabsTool)
	if err != nil {
		return selectFailure(err)
	}

	if hasStored && stored.HasIndex {
		if tab, ok := tabAt(tabs, stored.TabIndex); ok {
			return s.reuseStoredTab(ctx, log, sc, tabsTool, tab, stored)
		}
		log.Info("stored tab missing remotely", "tab_index", stored.TabIndex)
	}
	return s.acquireTab(ctx, log, sc, tabsTool, tabs, stored, initialURL)
}

// reuseStoredTab re-selects a still-existing bound tab. A blank tab with a
// non-blank stored URL means the browser process restarted and reset the tab
// content; restore it. Otherwise a non-blank live URL is fresher than
// anything stored and wins the record.
func (s *service) reuseStoredTab(ctx context.Context, log pslog.Logger, sc scope, tabsTool string, tab schema.BrowserTab, stored schema.TabState) schema.SelectTabResponse {
	if _, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "select", "index": tab.Index})); err != nil {
		return selectFailure(err)
	}
	switch {
	case schema.IsBlankURL(tab.URL) && !schema.IsBlankURL(stored.URL):
		s.restoreStoredURL(ctx, log, sc, stored.URL)
	case !schema.IsBlankURL(tab.URL):
		if err := s.states.UpdateURL(ctx, sc.key, tab.URL); err != nil {
			log.Warn("tab url persist failed", "err", err)
		}
	}
	log.Debug("tab select reused stored index", "tab_index", tab.Index)
	return schema.SelectTabResponse{Success: true, TabIndex: tab.Index}
}

func (s *service) restoreStoredURL(ctx context.Context, log pslog.Logger, sc scope, url string) {
	navTool, err := s.tools.find(ctx, sc.key.AgentID, matchNavigate)
	if err != nil || navTool == "" {
		log.Warn("tab url restore skipped, navigate tool unavailable", "err", err)
		return
	}
	result, err := s.invoker.invoke(ctx, sc.call(navTool, map[string]any{"url": url}))
	if err != nil || result.IsError {
		log.Warn("tab url restore failed", "url", url, "err", err)
		return
	}
	if err := s.states.UpdateURL(ctx, sc.key, url); err != nil {
		log.Warn("tab url persist failed", "err", err)
	}
	log.Info("tab url restored", "url", url)
}

// acquireTab binds an unbound (or stale-bound) conversation to a tab:
// evict at the cap, reuse the lowest blank tab, or create a new one.
func (s *service) acquireTab(ctx context.Context, log pslog.Logger, sc scope, tabsTool string, tabs []schema.BrowserTab, stored schema.TabState, initialURL string) schema.SelectTabResponse {
	if len(tabs) >= s.cfg.MaxTabsPerUser {
		s.evictOldest(ctx, log, sc, tabsTool)
	}

	var tabIndex int
	if blank, ok := lowestBlankTab(tabs); ok {
		if _, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "select", "index": blank.Index})); err != nil {
			return selectFailure(err)
		}
		tabIndex = blank.Index
		log.Debug("tab select reused blank tab", "tab_index", tabIndex)
	} else {
		if _, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "new"})); err != nil {
			return selectFailure(err)
		}
		// The tabs tool does not report the created index; re-list and take
		// the maximum.
		after, err := s.listTabs(ctx, sc, tabsTool)
		if err != nil {
			return selectFailure(err)
		}
		tabIndex = maxTabIndex(after)
		log.Debug("tab select created tab", "tab_index", tabIndex)
	}

	navigatedURL := ""
	target := stored.URL
	if schema.IsBlankURL(target) {
		target = initialURL
	}
	if !schema.IsBlankURL(target) {
		url, failure := s.navigateFreshTab(ctx, log, sc, target)
		if failure != nil {
			return *failure
		}
		navigatedURL = url
	}

	recoveredURL := ""
	if navigatedURL == "" {
		if current, ok := s.fetchCurrentURL(ctx, sc, tabsTool); ok {
			recoveredURL = current
		}
	}

	persistURL := firstNonBlank(navigatedURL, recoveredURL, stored.URL)
	if err := s.states.Upsert(ctx, sc.key, schema.TabState{URL: persistURL, TabIndex: tabIndex, HasIndex: true}); err != nil {
		return selectFailure(err)
	}
	return schema.SelectTabResponse{Success: true, TabIndex: tabIndex}
}

// navigateFreshTab loads the chosen URL into a freshly acquired tab. A nil
// failure means the navigated URL (possibly empty) should be used as-is.
func (s *service) navigateFreshTab(ctx context.Context, log pslog.Logger, sc scope, url string) (string, *schema.SelectTabResponse) {
	navTool, err := s.tools.find(ctx, sc.key.AgentID, matchNavigate)
	if err != nil {
		failure := selectFailure(err)
		return "", &failure
	}
	if navTool == "" {
		log.Warn("tab navigate skipped, navigate tool unavailable", "url", url)
		return "", nil
	}
	result, err := s.invoker.invoke(ctx, sc.call(navTool, map[string]any{"url": url}))
	if err != nil {
		failure := selectFailure(err)
		return "", &failure
	}
	if result.IsError {
		log.Warn("tab navigate failed", "url", url, "err", result.Text())
		return "", nil
	}
	log.Info("tab navigate ok", "url", url)
	return url, nil
}

// evictOldest makes room under the tab cap by closing the user's oldest
// persisted binding across all agents. Best-effort: a failure here must not
// abort the allocation it makes room for. Tab 0 is the implicit default and
// is never auto-closed.
func (s *service) evictOldest(ctx context.Context, log pslog.Logger, sc scope, tabsTool string) {
	oldest, ok, err := s.states.OldestForUser(ctx, sc.key.UserID)
	if err != nil {
		log.Warn("tab evict lookup failed", "err", err)
		return
	}
	if !ok {
		log.Debug("tab evict skipped, no stored tabs")
		return
	}
	if oldest.State.HasIndex && oldest.State.TabIndex > 0 {
		if _, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "close", "index": oldest.State.TabIndex})); err != nil {
			log.Warn("tab evict close failed", "tab_index", oldest.State.TabIndex, "err", err)
		}
	}
	if err := s.states.Delete(ctx, oldest.Key); err != nil {
		log.Warn("tab evict state clear failed", "err", err)
		return
	}
	log.Info("tab evicted", "evicted_agent", oldest.Key.AgentID, "evicted_conversation", oldest.Key.ConversationID, "tab_index", oldest.State.TabIndex)
}

func (s *service) listTabs(ctx context.Context, sc scope, tabsTool string) ([]schema.BrowserTab, error) {
	result, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "list"}))
	if err != nil {
		return nil, err
	}
	return parseTabsList(result.Content), nil
}

// fetchCurrentURL lists tabs fresh and extracts the current URL. Best-effort.
func (s *service) fetchCurrentURL(ctx context.Context, sc scope, tabsTool string) (string, bool) {
	result, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "list"}))
	if err != nil {
		return "", false
	}
	return extractCurrentURL(result.Content)
}

// resolveCurrentURL resolves the tabs tool first; unresolvable means unknown.
func (s *service) resolveCurrentURL(ctx context.Context, sc scope) (string, bool) {
	tabsTool, err := s.tools.find(ctx, sc.key.AgentID, matchTabs)
	if err != nil || tabsTool == "" {
		return "", false
	}
	return s.fetchCurrentURL(ctx, sc, tabsTool)
}

func firstNonBlank(urls ...string) string {
	for _, url := range urls {
		if !schema.IsBlankURL(url) {
			return url
		}
	}
	return ""
}
