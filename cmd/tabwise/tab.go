package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/tabwise/schema"
)

func newTabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tab",
		Short: "Manage the conversation's browser tab",
	}
	cmd.AddCommand(newTabSelectCmd())
	cmd.AddCommand(newTabCloseCmd())
	return cmd
}

func newTabSelectCmd() *cobra.Command {
	var flags scopeFlags
	var initialURL string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Bind a tab to the conversation, creating one if needed",
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
			resp, err := rt.service.SelectTab(cmd.Context(), schema.SelectTabRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				InitialURL:     initialURL,
			})
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("tab selection failed: %s", resp.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tab %d\n", resp.TabIndex)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&initialURL, "url", "", "initial URL for a freshly created tab")
	return cmd
}

func newTabCloseCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close the conversation's tab and clear its state",
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
			resp, err := rt.service.CloseTab(cmd.Context(), schema.CloseTabRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
			})
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("tab close failed: %s", resp.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "closed")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
