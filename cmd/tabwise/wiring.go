package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/internal/appconfig"
	"pkt.systems/tabwise/internal/chromegw"
	"pkt.systems/tabwise/internal/mcpgw"
	filestore "pkt.systems/tabwise/internal/statestore/file"
	memorystore "pkt.systems/tabwise/internal/statestore/memory"
	postgresstore "pkt.systems/tabwise/internal/statestore/postgres"
	"pkt.systems/tabwise/schema"
)

// scopeFlags identify the conversation every tab operation is bound to.
type scopeFlags struct {
	configPath   string
	agent        string
	user         string
	conversation string
	token        string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&f.agent, "agent", "", "agent id")
	cmd.Flags().StringVar(&f.user, "user", "", "user id")
	cmd.Flags().StringVar(&f.conversation, "conversation", "", "conversation id")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("TABWISE_AUTH_TOKEN"), "auth token passed to the gateway")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("conversation")
}

func (f *scopeFlags) key() (schema.ConversationKey, error) {
	return schema.NormalizeConversationKey(
		schema.AgentID(f.agent),
		schema.UserID(f.user),
		schema.ConversationID(f.conversation),
	)
}

func (f *scopeFlags) userContext() schema.UserContext {
	return schema.UserContext{UserID: schema.UserID(f.user), AuthToken: f.token}
}

// runtime bundles the service with the closers behind it.
type runtime struct {
	service core.Service
	closers []io.Closer
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

// buildRuntime loads config and wires the store, gateway and service.
func buildRuntime(cmd *cobra.Command, configPath string) (*runtime, error) {
	logger := pslog.Ctx(cmd.Context())
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.Features.BrowserTabs {
		return nil, fmt.Errorf("%w: browser_tabs feature is off", schema.ErrDisabled)
	}

	rt := &runtime{}

	var states core.StateStore
	switch cfg.State.Backend {
	case "memory":
		states = memorystore.New()
	case "file":
		store, err := filestore.NewWithLogger(cfg.State.File.Dir, logger)
		if err != nil {
			return nil, err
		}
		states = store
	case "postgres":
		store, err := postgresstore.New(cfg.State.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store)
		states = store
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}
	logger.Debug("state store ready", "backend", cfg.State.Backend)

	var gateway core.Gateway
	var catalog core.Catalog
	switch cfg.Gateway.Backend {
	case "chrome":
		gw, err := chromegw.New(chromegw.Options{
			Headless: cfg.Gateway.Chrome.Headless,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, gw)
		gateway, catalog = gw, gw
	case "mcp":
		gw, err := mcpgw.New(mcpgw.Options{
			Endpoint:     cfg.Gateway.MCP.Endpoint,
			ToolPrefix:   cfg.Gateway.MCP.ToolPrefix,
			ServiceToken: os.Getenv("TABWISE_AUTH_TOKEN"),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, gw)
		gateway, catalog = gw, gw
	default:
		return nil, fmt.Errorf("unsupported gateway backend %q", cfg.Gateway.Backend)
	}
	logger.Debug("gateway ready", "backend", cfg.Gateway.Backend)

	svc, err := core.NewService(schema.ServiceConfig{
		Enabled:        cfg.Features.BrowserTabs,
		MaxTabsPerUser: cfg.Service.MaxTabsPerUser,
		ViewportWidth:  cfg.Service.ViewportWidth,
		ViewportHeight: cfg.Service.ViewportHeight,
	}, core.ServiceDeps{
		Gateway: gateway,
		Catalog: catalog,
		States:  states,
		Logger:  logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.service = svc
	return rt, nil
}
