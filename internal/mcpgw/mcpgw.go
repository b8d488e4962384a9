// Package mcpgw implements the browser tool gateway and catalog on top of a
// remote MCP server reached over streamable HTTP. Each distinct auth token
// gets its own initialized client, cached for the lifetime of the gateway.
package mcpgw

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"pkt.systems/pslog"

	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/schema"
)

// Options configure the MCP gateway.
type Options struct {
	// Endpoint is the streamable HTTP URL of the MCP server.
	Endpoint string
	// ToolPrefix, when set, keeps only catalog tools whose name carries the
	// prefix. Empty keeps everything the server lists.
	ToolPrefix string
	// ServiceToken authenticates catalog listing, which is not tied to any
	// one user. Tool invocations use the per-call user token instead.
	ServiceToken string
	Logger       pslog.Logger
}

// Gateway calls browser tools on a remote MCP server. It implements both
// core.Gateway and core.Catalog.
type Gateway struct {
	endpoint     string
	toolPrefix   string
	serviceToken string
	log          pslog.Logger

	mu      sync.Mutex
	clients map[string]*client.Client
}

var _ core.Gateway = (*Gateway)(nil)
var _ core.Catalog = (*Gateway)(nil)

// New creates a gateway for the given streamable HTTP endpoint.
func New(opts Options) (*Gateway, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("mcpgw: endpoint is required")
	}
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Gateway{
		endpoint:     opts.Endpoint,
		toolPrefix:   opts.ToolPrefix,
		serviceToken: opts.ServiceToken,
		log:          log.With("mcp_endpoint", opts.Endpoint),
		clients:      make(map[string]*client.Client),
	}, nil
}

// Close shuts down all cached clients.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var first error
	for token, c := range g.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(g.clients, token)
	}
	return first
}

func (g *Gateway) clientFor(ctx context.Context, token string) (*client.Client, error) {
	g.mu.Lock()
	if c, ok := g.clients[token]; ok {
		g.mu.Unlock()
		return c, nil
	}
	g.mu.Unlock()

	var topts []transport.StreamableHTTPCOption
	if token != "" {
		topts = append(topts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + token,
		}))
	}
	c, err := client.NewStreamableHttpClient(g.endpoint, topts...)
	if err != nil {
		return nil, fmt.Errorf("mcpgw: create client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcpgw: start client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "tabwise", Version: "1"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcpgw: initialize: %w", err)
	}
	g.log.Debug("mcp client initialized")

	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.clients[token]; ok {
		// Another goroutine won the race.
		_ = c.Close()
		return existing, nil
	}
	g.clients[token] = c
	return c, nil
}

// Invoke calls the named tool and converts the MCP result to the raw result
// shape the service normalizes.
func (g *Gateway) Invoke(ctx context.Context, call core.GatewayCall) (schema.RawToolResult, error) {
	c, err := g.clientFor(ctx, call.User.AuthToken)
	if err != nil {
		return schema.RawToolResult{}, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = call.ToolName
	req.Params.Arguments = call.Arguments
	res, err := c.CallTool(ctx, req)
	if err != nil {
		return schema.RawToolResult{}, fmt.Errorf("mcpgw: call %s: %w", call.ToolName, err)
	}
	return rawResult(res), nil
}

// ListTools lists the server's tools, filtered by the configured prefix, and
// attributes every match to the builtin browser catalog.
func (g *Gateway) ListTools(ctx context.Context, agentID schema.AgentID) ([]schema.CatalogTool, error) {
	c, err := g.clientFor(ctx, g.serviceToken)
	if err != nil {
		return nil, err
	}
	var out []schema.CatalogTool
	var cursor mcp.Cursor
	for {
		req := mcp.ListToolsRequest{}
		req.Params.Cursor = cursor
		res, err := c.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("mcpgw: list tools: %w", err)
		}
		for _, tool := range res.Tools {
			if g.toolPrefix != "" && !strings.HasPrefix(tool.Name, g.toolPrefix) {
				continue
			}
			out = append(out, schema.CatalogTool{
				Name:      tool.Name,
				CatalogID: schema.BrowserCatalogID,
			})
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return out, nil
}

func rawResult(res *mcp.CallToolResult) schema.RawToolResult {
	if res == nil {
		return schema.RawToolResult{}
	}
	items := make([]any, 0, len(res.Content))
	for _, item := range res.Content {
		switch v := item.(type) {
		case mcp.TextContent:
			items = append(items, map[string]any{
				"type": schema.ContentTypeText,
				"text": v.Text,
			})
		case mcp.ImageContent:
			items = append(items, map[string]any{
				"type":     schema.ContentTypeImage,
				"data":     v.Data,
				"mimeType": v.MIMEType,
			})
		default:
			items = append(items, item)
		}
	}
	return schema.RawToolResult{Content: items, IsError: res.IsError}
}
