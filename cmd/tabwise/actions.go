package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/tabwise/schema"
)

func readAll(cmd *cobra.Command) ([]byte, error) {
	return io.ReadAll(cmd.InOrStdin())
}

func newActionCmds() []*cobra.Command {
	return []*cobra.Command{
		newClickCmd(),
		newTypeCmd(),
		newPressCmd(),
		newSnapshotCmd(),
		newEvalCmd(),
	}
}

func newClickCmd() *cobra.Command {
	var flags scopeFlags
	var ref string
	cmd := &cobra.Command{
		Use:   "click <element>",
		Short: "Click an element in the conversation's tab",
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
			resp, err := rt.service.Click(cmd.Context(), schema.ClickRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				Element:        args[0],
				Ref:            ref,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&ref, "ref", "", "element reference from a snapshot")
	return cmd
}

func newTypeCmd() *cobra.Command {
	var flags scopeFlags
	var ref string
	var submit bool
	cmd := &cobra.Command{
		Use:   "type <element> <text>",
		Short: "Type text into an element in the conversation's tab",
		Args:  cobra.ExactArgs(2),
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
			resp, err := rt.service.Type(cmd.Context(), schema.TypeRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				Element:        args[0],
				Ref:            ref,
				Text:           args[1],
				Submit:         submit,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&ref, "ref", "", "element reference from a snapshot")
	cmd.Flags().BoolVar(&submit, "submit", false, "press Enter after typing")
	return cmd
}

func newPressCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "press <key>",
		Short: "Press a keyboard key in the conversation's tab",
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
			resp, err := rt.service.PressKey(cmd.Context(), schema.PressKeyRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				Key:            args[0],
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture an accessibility snapshot of the conversation's tab",
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
			resp, err := rt.service.Snapshot(cmd.Context(), schema.SnapshotRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Snapshot)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEvalCmd() *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "eval <code>",
		Short: "Evaluate code in the conversation's tab",
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
			resp, err := rt.service.RunCode(cmd.Context(), schema.RunCodeRequest{
				AgentID:        key.AgentID,
				ConversationID: key.ConversationID,
				User:           flags.userContext(),
				Code:           args[0],
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
