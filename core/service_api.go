package core

import (
	"context"

	"pkt.systems/tabwise/schema"
)

// Service is the transport-agnostic API for conversation-scoped browser tab
// orchestration.
type Service interface {
	SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	Navigate(ctx context.Context, req schema.NavigateRequest) (schema.NavigateResponse, error)
	NavigateBack(ctx context.Context, req schema.NavigateBackRequest) (schema.NavigateBackResponse, error)
	CurrentURL(ctx context.Context, req schema.CurrentURLRequest) (schema.CurrentURLResponse, error)
	Screenshot(ctx context.Context, req schema.ScreenshotRequest) (schema.ScreenshotResponse, error)
	Click(ctx context.Context, req schema.ClickRequest) (schema.ClickResponse, error)
	Type(ctx context.Context, req schema.TypeRequest) (schema.TypeResponse, error)
	PressKey(ctx context.Context, req schema.PressKeyRequest) (schema.PressKeyResponse, error)
	Snapshot(ctx context.Context, req schema.SnapshotRequest) (schema.SnapshotResponse, error)
	RunCode(ctx context.Context, req schema.RunCodeRequest) (schema.RunCodeResponse, error)
	SyncNavigation(ctx context.Context, req schema.SyncNavigationRequest) (schema.SyncNavigationResponse, error)
}
