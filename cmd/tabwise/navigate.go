package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/tabwise/schema"
)

func newNavigateCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "navigate <url>",
		Short: "Navigate the conversation's tab to a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, flags.configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			resp, err := rt.service.Navigate(cmd.Context(), schema.NavigateRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				URL:            args[0],
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.URL)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newBackCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "back",
		Short: "Navigate the conversation's tab back in history",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, flags.configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			resp, err := rt.service.NavigateBack(cmd.Context(), schema.NavigateBackRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
			})
			if err != nil {
				return err
			}
			if !resp.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "not navigated: %s\n", resp.Error)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.URL)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newURLCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the URL of the currently visible tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, flags.configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			resp, err := rt.service.CurrentURL(cmd.Context(), schema.CurrentURLRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
			})
			if err != nil {
				return err
			}
			if !resp.Found {
				fmt.Fprintln(cmd.OutOrStdout(), "unknown")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.URL)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newScreenshotCmd() *cobra.Command {
	var flags scopeFlags
	var outPath string
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture the currently visible tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, flags.configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			resp, err := rt.service.Screenshot(cmd.Context(), schema.ScreenshotRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
			})
			if err != nil {
				return err
			}
			if resp.Screenshot == nil {
				return fmt.Errorf("%s", resp.Error)
			}
			data, err := base64.StdEncoding.DecodeString(resp.Screenshot.Data)
			if err != nil {
				return fmt.Errorf("decode screenshot: %w", err)
			}
			if outPath == "" {
				outPath = "screenshot.jpg"
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", outPath, resp.URL)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "output file path")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "sync [output]",
		Short: "Sync persisted tab state from navigate tool output",
		Long:  "Reads the text output of an agent-driven navigate tool call, from the argument or stdin, and refreshes the stored tab URL.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.key()
			if err != nil {
				return err
			}
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := readAll(cmd)
				if err != nil {
					return err
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no tool output provided")
			}
			rt, err := buildRuntime(cmd, flags.configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			resp, err := rt.service.SyncNavigation(cmd.Context(), schema.SyncNavigationRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				Content:        []schema.ContentItem{schema.TextContent(text)},
			})
			if err != nil {
				return err
			}
			if !resp.Synced {
				fmt.Fprintln(cmd.OutOrStdout(), "no url found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.URL)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
