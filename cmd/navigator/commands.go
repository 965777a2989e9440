package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/navigator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newListCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, err := config.navigator()
			if err != nil {
				return err
			}
			workflows, err := nav.ListWorkflows(cmd.Context())
			if err != nil {
				return err
			}
			if config.JSON {
				return printJSON(workflows)
			}
			if len(workflows) == 0 {
				color.Blue("No workflows found in %s", config.WorkflowsDir)
				return nil
			}
			for _, wf := range workflows {
				color.Cyan("%s (v%s)", wf.ID, wf.Version)
				fmt.Printf("  %s\n", wf.Title)
				if wf.Description != "" {
					fmt.Printf("  %s\n", wf.Description)
				}
			}
			return nil
		},
	}
}

func newSessionsCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.sessions()
			if err != nil {
				return err
			}
			summaries, err := store.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if config.JSON {
				return printJSON(summaries)
			}
			if len(summaries) == 0 {
				color.Blue("No sessions")
				return nil
			}
			for _, s := range summaries {
				color.Cyan("%s", s.Name)
				fmt.Printf("  workflow=%s activity=%s status=%s updated=%s\n",
					s.WorkflowID, s.CurrentActivity, s.Status, s.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newStartCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "start <workflow-id>",
		Short: "Start a workflow in the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, err := config.navigator()
			if err != nil {
				return err
			}
			resp, err := nav.Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return config.finish(cmd.Context(), resp)
		},
	}
}

func newStatusCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current position and available actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.Status(ctx, token)
			})
		},
	}
}

func newStepCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "step <step-id>",
		Short: "Complete a step of the current activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.CompleteStep(ctx, token, args[0])
			})
		},
	}
}

func newRespondCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "respond <checkpoint-id> <option-id>",
		Short: "Answer a checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.RespondToCheckpoint(ctx, token, args[0], args[1])
			})
		},
	}
}

func newDecideCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <decision-id> <branch-id>",
		Short: "Record the branch taken at a decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.RecordDecision(ctx, token, args[0], args[1])
			})
		},
	}
}

func newTransitionCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "transition <activity-id>",
		Short: "Move to another activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.Transition(ctx, token, args[0])
			})
		},
	}
}

func newNextCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Follow the default transition of the current activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.Next(ctx, token)
			})
		},
	}
}

func newLoopCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "loop <loop-id> [items...]",
		Short: "Start or advance a loop",
		Long: `Start or advance a loop in the current activity.

Pass the same items on every call; the token only records the current item
and the item count. Items are parsed as JSON where possible.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				items = append(items, parseValue(arg))
			}
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.AdvanceLoop(ctx, token, args[0], items)
			})
		},
	}
}

func newSetCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a workflow variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.SetVariable(ctx, token, args[0], parseValue(args[1]))
			})
		},
	}
}

func newFinishCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "finish",
		Short: "Mark the workflow completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.Finish(ctx, token)
			})
		},
	}
}

func newAbortCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "abort [reason]",
		Short: "Abort the workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args, " ")
			return config.run(cmd, func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error) {
				return nav.Abort(ctx, token, reason)
			})
		},
	}
}

func newInspectCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Decode the state token and print its contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := config.token(cmd.Context())
			if err != nil {
				return err
			}
			if !navigator.IsValidTokenFormat(token) {
				return fmt.Errorf("not a state token")
			}
			state, err := navigator.DecodeState(token)
			if err != nil {
				return err
			}
			if config.JSON {
				return printJSON(state)
			}
			version, _ := navigator.GetTokenVersion(token)
			ratio, err := navigator.CompressionRatio(state)
			if err != nil {
				return err
			}
			color.Cyan("Token %s, %d bytes, compression ratio %.2f", version, len(token), ratio)
			return printJSON(state)
		},
	}
}

func newHistoryCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the audit log for the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.AuditDir == "" {
				return fmt.Errorf("--audit-log is required")
			}
			nav, err := config.navigator()
			if err != nil {
				return err
			}
			token, err := config.token(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := nav.History(cmd.Context(), token)
			if err != nil {
				return err
			}
			if config.JSON {
				return printJSON(entries)
			}
			for _, e := range entries {
				status := color.GreenString("ok")
				if !e.Success {
					status = color.RedString(string(e.ErrorCode))
				}
				fmt.Printf("%s  %-22s %-16s %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Operation, e.Activity, status)
			}
			return nil
		},
	}
}
