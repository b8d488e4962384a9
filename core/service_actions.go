package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"pkt.systems/pslog"

	"pkt.systems/tabwise/internal/logx"
	"pkt.systems/tabwise/schema"
)

// ensureTab runs the selection sequence and converts a soft failure into a
// hard error for callers that cannot proceed without a tab.
func (s *service) ensureTab(ctx context.Context, sc scope) error {
	result, err := s.SelectTab(ctx, schema.SelectTabRequest{
		AgentID:        sc.key.AgentID,
		ConversationID: sc.key.ConversationID,
		User:           sc.user,
	})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", schema.ErrBrowserAction, result.Error)
	}
	return nil
}

// resizeViewport applies the configured viewport before navigation and
// capture. Best-effort: agents without a resize tool keep their defaults.
func (s *service) resizeViewport(ctx context.Context, log pslog.Logger, sc scope) {
	tool, err := s.tools.find(ctx, sc.key.AgentID, matchResize)
	if err != nil || tool == "" {
		return
	}
	result, err := s.invoker.invoke(ctx, sc.call(tool, map[string]any{
		"width":  s.cfg.ViewportWidth,
		"height": s.cfg.ViewportHeight,
	}))
	if err != nil {
		log.Debug("viewport resize failed", "err", err)
		return
	}
	if result.IsError {
		log.Debug("viewport resize failed", "err", result.Text())
	}
}

// Navigate loads a URL into the conversation's tab and persists the
// authoritative post-navigation URL, which may differ from the requested one
// after redirects.
func (s *service) Navigate(ctx context.Context, req schema.NavigateRequest) (schema.NavigateResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.NavigateResponse{}, err
	}
	if strings.TrimSpace(req.URL) == "" {
		return schema.NavigateResponse{}, schema.ErrInvalidURL
	}
	log := logx.WithKey(ctx, sc.key)
	if err := s.ensureTab(ctx, sc); err != nil {
		return schema.NavigateResponse{}, err
	}
	navTool, err := s.tools.find(ctx, sc.key.AgentID, matchNavigate)
	if err != nil {
		return schema.NavigateResponse{}, err
	}
	if navTool == "" {
		return schema.NavigateResponse{}, fmt.Errorf("%w: navigate", schema.ErrToolUnavailable)
	}
	s.resizeViewport(ctx, log, sc)
	result, err := s.invoker.invoke(ctx, sc.call(navTool, map[string]any{"url": req.URL}))
	if err != nil {
		return schema.NavigateResponse{}, err
	}
	if result.IsError {
		return schema.NavigateResponse{}, fmt.Errorf("%w: %s", schema.ErrBrowserAction, result.Text())
	}
	url := req.URL
	if current, ok := s.resolveCurrentURL(ctx, sc); ok && current != "" {
		url = current
	}
	if !schema.IsBlankURL(url) {
		if err := s.states.UpdateURL(ctx, sc.key, url); err != nil {
			log.Warn("tab url persist failed", "err", err)
		}
	}
	log.Info("navigate ok", "url", url)
	return schema.NavigateResponse{URL: url}, nil
}

// NavigateBack goes back in the tab's history. A remote refusal is an
// expected outcome (no history), reported as Success false rather than an
// error.
func (s *service) NavigateBack(ctx context.Context, req schema.NavigateBackRequest) (schema.NavigateBackResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.NavigateBackResponse{}, err
	}
	log := logx.WithKey(ctx, sc.key)
	if err := s.ensureTab(ctx, sc); err != nil {
		return schema.NavigateBackResponse{}, err
	}
	backTool, err := s.tools.find(ctx, sc.key.AgentID, matchNavigateBack)
	if err != nil {
		return schema.NavigateBackResponse{}, err
	}
	if backTool == "" {
		return schema.NavigateBackResponse{}, fmt.Errorf("%w: navigate back", schema.ErrToolUnavailable)
	}
	result, err := s.invoker.invoke(ctx, sc.call(backTool, map[string]any{}))
	if err != nil {
		return schema.NavigateBackResponse{}, err
	}
	if result.IsError {
		log.Debug("navigate back refused", "err", result.Text())
		return schema.NavigateBackResponse{Error: result.Text()}, nil
	}
	url := ""
	if current, ok := s.resolveCurrentURL(ctx, sc); ok {
		url = current
	}
	if !schema.IsBlankURL(url) {
		if err := s.states.UpdateURL(ctx, sc.key, url); err != nil {
			log.Warn("tab url persist failed", "err", err)
		}
	}
	log.Info("navigate back ok", "url", url)
	return schema.NavigateBackResponse{Success: true, URL: url}, nil
}

// noScreenshotError is the soft failure reported when the browser tool
// returned no image content.
const noScreenshotError = "No screenshot returned from browser tool"

var dataImageURIRe = regexp.MustCompile(`data:(image/[a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]+)`)

// Screenshot captures whatever is currently visible. It deliberately does
// not run tab selection: the tab was selected when the conversation
// subscribed, and re-selecting here would fight concurrent agent-driven
// navigation. The reported URL comes from a fresh tabs listing, never from
// the screenshot tool's own response.
func (s *service) Screenshot(ctx context.Context, req schema.ScreenshotRequest) (schema.ScreenshotResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.ScreenshotResponse{}, err
	}
	log := logx.WithKey(ctx, sc.key)
	tool, err := s.tools.find(ctx, sc.key.AgentID, matchScreenshot)
	if err != nil {
		return schema.ScreenshotResponse{}, err
	}
	if tool == "" {
		return schema.ScreenshotResponse{}, fmt.Errorf("%w: screenshot", schema.ErrToolUnavailable)
	}
	s.resizeViewport(ctx, log, sc)
	result, err := s.invoker.invoke(ctx, sc.call(tool, map[string]any{"type": "jpeg", "raw": true}))
	if err != nil {
		return schema.ScreenshotResponse{}, err
	}
	if result.IsError {
		return schema.ScreenshotResponse{}, fmt.Errorf("%w: %s", schema.ErrBrowserAction, result.Text())
	}

	image, ok := result.FirstImage()
	if !ok {
		if match := dataImageURIRe.FindStringSubmatch(result.Text()); match != nil {
			image = schema.ImageContent(match[2], match[1])
			ok = true
		}
	}
	if !ok {
		if s.debugScreenshot {
			log.Debug("screenshot missing image content", "content_items", len(result.Content))
		}
		return schema.ScreenshotResponse{Error: noScreenshotError}, nil
	}

	url := ""
	if current, ok := s.resolveCurrentURL(ctx, sc); ok {
		url = current
	}
	if s.debugScreenshot {
		log.Debug("screenshot ok", "mime_type", image.MIMEType, "url", url)
	}
	return schema.ScreenshotResponse{Screenshot: &image, URL: url}, nil
}

// CloseTab closes the conversation's tab and clears its state. State is
// cleared even when the remote close fails: a stale binding is worse than a
// lost error detail. Tab 0 is the implicit default and is never closed.
func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.CloseTabResponse{}, err
	}
	log := logx.WithKey(ctx, sc.key)
	tabsTool, err := s.tools.find(ctx, sc.key.AgentID, matchTabs)
	if err != nil {
		return schema.CloseTabResponse{}, err
	}
	stored, hasStored, err := s.states.Get(ctx, sc.key)
	if err != nil {
		return schema.CloseTabResponse{}, err
	}
	if tabsTool == "" || !hasStored || !stored.HasIndex || stored.TabIndex == 0 {
		s.clearState(ctx, log, sc.key)
		return schema.CloseTabResponse{Success: true}, nil
	}
	closeErr := ""
	result, err := s.invoker.invoke(ctx, sc.call(tabsTool, map[string]any{"action": "close", "index": stored.TabIndex}))
	if err != nil {
		log.Warn("tab close failed", "tab_index", stored.TabIndex, "err", err)
		closeErr = err.Error()
	} else if result.IsError {
		log.Warn("tab close failed", "tab_index", stored.TabIndex, "err", result.Text())
		closeErr = result.Text()
	}
	s.clearState(ctx, log, sc.key)
	if closeErr != "" {
		return schema.CloseTabResponse{Error: closeErr}, nil
	}
	log.Info("tab closed", "tab_index", stored.TabIndex)
	return schema.CloseTabResponse{Success: true}, nil
}

func (s *service) clearState(ctx context.Context, log pslog.Logger, key schema.ConversationKey) {
	if err := s.states.Delete(ctx, key); err != nil {
		log.Warn("tab state clear failed", "err", err)
	}
}

// CurrentURL reads the current tab's URL from a fresh listing on every call.
func (s *service) CurrentURL(ctx context.Context, req schema.CurrentURLRequest) (schema.CurrentURLResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.CurrentURLResponse{}, err
	}
	url, found := s.resolveCurrentURL(ctx, sc)
	return schema.CurrentURLResponse{URL: url, Found: found}, nil
}

// SyncNavigation opportunistically refreshes the persisted URL from the
// output of a navigate tool the agent called on its own. Unmatched content
// is a silent no-op.
func (s *service) SyncNavigation(ctx context.Context, req schema.SyncNavigationRequest) (schema.SyncNavigationResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.SyncNavigationResponse{}, err
	}
	url, ok := extractNavigatedURL(req.Content)
	if !ok {
		return schema.SyncNavigationResponse{}, nil
	}
	log := logx.WithKey(ctx, sc.key)
	if s.debugTabSync {
		log.Debug("tab sync url extracted", "url", url)
	}
	if err := s.states.UpdateURL(ctx, sc.key, url); err != nil {
		log.Warn("tab sync persist failed", "url", url, "err", err)
		return schema.SyncNavigationResponse{URL: url}, nil
	}
	log.Info("tab sync url", "url", url)
	return schema.SyncNavigationResponse{URL: url, Synced: true}, nil
}

// primaryAction runs an interaction tool with tab selection first, a hard
// error when the tool is missing, and remote failures surfaced as errors.
func (s *service) primaryAction(ctx context.Context, sc scope, action string, match func(string) bool, args map[string]any) (schema.ToolResult, error) {
	if err := s.ensureTab(ctx, sc); err != nil {
		return schema.ToolResult{}, err
	}
	tool, err := s.tools.find(ctx, sc.key.AgentID, match)
	if err != nil {
		return schema.ToolResult{}, err
	}
	if tool == "" {
		return schema.ToolResult{}, fmt.Errorf("%w: %s", schema.ErrToolUnavailable, action)
	}
	result, err := s.invoker.invoke(ctx, sc.call(tool, args))
	if err != nil {
		return schema.ToolResult{}, err
	}
	if result.IsError {
		return schema.ToolResult{}, fmt.Errorf("%w: %s", schema.ErrBrowserAction, result.Text())
	}
	return result, nil
}

func (s *service) Click(ctx context.Context, req schema.ClickRequest) (schema.ClickResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.ClickResponse{}, err
	}
	result, err := s.primaryAction(ctx, sc, "click", matchClick, map[string]any{
		"element": req.Element,
		"ref":     req.Ref,
	})
	if err != nil {
		return schema.ClickResponse{}, err
	}
	return schema.ClickResponse{Output: result.Text()}, nil
}

func (s *service) Type(ctx context.Context, req schema.TypeRequest) (schema.TypeResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.TypeResponse{}, err
	}
	result, err := s.primaryAction(ctx, sc, "type", matchType, map[string]any{
		"element": req.Element,
		"ref":     req.Ref,
		"text":    req.Text,
		"submit":  req.Submit,
	})
	if err != nil {
		return schema.TypeResponse{}, err
	}
	return schema.TypeResponse{Output: result.Text()}, nil
}

func (s *service) PressKey(ctx context.Context, req schema.PressKeyRequest) (schema.PressKeyResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.PressKeyResponse{}, err
	}
	result, err := s.primaryAction(ctx, sc, "press key", matchPressKey, map[string]any{"key": req.Key})
	if err != nil {
		return schema.PressKeyResponse{}, err
	}
	return schema.PressKeyResponse{Output: result.Text()}, nil
}

func (s *service) Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.SnapshotResponse{}, err
	}
	result, err := s.primaryAction(ctx, sc, "snapshot", matchSnapshot, map[string]any{})
	if err != nil {
		return schema.SnapshotResponse{}, err
	}
	return schema.SnapshotResponse{Snapshot: result.Text()}, nil
}

func (s *service) RunCode(ctx context.Context, req schema.RunCodeRequest) (schema.RunCodeResponse, error) {
	sc, err := s.scope(req.AgentID, req.User, req.ConversationID)
	if err != nil {
		return schema.RunCodeResponse{}, err
	}
	result, err := s.primaryAction(ctx, sc, "run code", matchRunCode, map[string]any{"function": req.Code})
	if err != nil {
		return schema.RunCodeResponse{}, err
	}
	return schema.RunCodeResponse{Output: result.Text()}, nil
}
