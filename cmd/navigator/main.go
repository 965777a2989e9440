package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/deepnoodle-ai/navigator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI configuration
type Config struct {
	WorkflowsDir string
	SessionsDir  string
	AuditDir     string
	Session      string
	Token        string
	Verbose      bool
	JSON         bool
}

var errRefused = errors.New("operation refused")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRefused) {
			color.Red("Error: %v", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	config := &Config{}
	root := &cobra.Command{
		Use:   "navigator",
		Short: "Step through YAML-defined workflows",
		Long: `navigator walks a caller through a workflow one step at a time.

Progress lives in an opaque state token. The CLI keeps the latest token for
each named session in the sessions directory, or takes one explicitly with
--token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&config.WorkflowsDir, "workflows", "w", "workflows", "Directory containing workflow definitions")
	flags.StringVar(&config.SessionsDir, "sessions-dir", "", "Directory to store session tokens (default ~/.navigator/sessions)")
	flags.StringVar(&config.AuditDir, "audit-log", "", "Directory to write per-session audit logs (optional)")
	flags.StringVarP(&config.Session, "session", "s", "default", "Session name")
	flags.StringVarP(&config.Token, "token", "t", "", "State token to use instead of the stored session token")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&config.JSON, "json", false, "Output responses in JSON format")

	root.AddCommand(
		newListCmd(config),
		newSessionsCmd(config),
		newStartCmd(config),
		newStatusCmd(config),
		newStepCmd(config),
		newRespondCmd(config),
		newDecideCmd(config),
		newTransitionCmd(config),
		newNextCmd(config),
		newLoopCmd(config),
		newSetCmd(config),
		newFinishCmd(config),
		newAbortCmd(config),
		newInspectCmd(config),
		newHistoryCmd(config),
	)
	return root
}

func (c *Config) setupLogger() *slog.Logger {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	if c.JSON {
		return navigator.NewJSONLogger(level)
	}
	return navigator.NewLogger(level)
}

func (c *Config) auditLogger() navigator.AuditLogger {
	if c.AuditDir == "" {
		return navigator.NewNullAuditLogger()
	}
	return navigator.NewFileAuditLogger(c.AuditDir)
}

func (c *Config) navigator() (*navigator.Navigator, error) {
	registry, err := navigator.LoadDir(c.WorkflowsDir)
	if err != nil {
		return nil, err
	}
	return navigator.NewNavigator(navigator.Options{
		Registry:    registry,
		Logger:      c.setupLogger(),
		AuditLogger: c.auditLogger(),
	})
}

func (c *Config) sessions() (*navigator.FileSessionStore, error) {
	return navigator.NewFileSessionStore(c.SessionsDir)
}

func (c *Config) token(ctx context.Context) (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	store, err := c.sessions()
	if err != nil {
		return "", err
	}
	return store.Load(ctx, c.Session)
}

type operation func(ctx context.Context, nav *navigator.Navigator, token string) (*navigator.Response, error)

// run loads the session token, applies op, stores the resulting token and
// prints the response.
func (c *Config) run(cmd *cobra.Command, op operation) error {
	ctx := cmd.Context()
	nav, err := c.navigator()
	if err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	resp, err := op(ctx, nav, token)
	if err != nil {
		return err
	}
	return c.finish(ctx, resp)
}

func (c *Config) finish(ctx context.Context, resp *navigator.Response) error {
	store, err := c.sessions()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, c.Session, resp.State); err != nil {
		return err
	}
	if err := c.printResponse(resp); err != nil {
		return err
	}
	if !resp.Success {
		return errRefused
	}
	return nil
}

func (c *Config) printResponse(resp *navigator.Response) error {
	if c.JSON {
		return printJSON(resp)
	}
	if resp.Success {
		color.Green("✓ %s", resp.Message)
	} else {
		color.Red("✗ %s: %s", resp.Error.Code, resp.Error.Message)
		color.White("  %s", resp.Message)
	}
	if resp.Checkpoint != nil {
		color.Yellow("Checkpoint %s: %s", resp.Checkpoint.ID, resp.Checkpoint.Message)
		for _, opt := range resp.Checkpoint.Options {
			fmt.Printf("  - %s: %s\n", opt.ID, opt.Label)
		}
	}
	if resp.Effect != nil {
		effect, err := json.Marshal(resp.Effect)
		if err == nil {
			color.Magenta("Option effect (not applied): %s", effect)
		}
	}
	printActions("Required", resp.AvailableActions.Required, color.New(color.FgCyan))
	printActions("Optional", resp.AvailableActions.Optional, color.New(color.FgBlue))
	printActions("Blocked", resp.AvailableActions.Blocked, color.New(color.FgRed))
	if resp.Complete {
		color.Green("Activity complete")
	}
	if resp.Status != navigator.StatusRunning {
		color.White("Status: %s", resp.Status)
	}
	return nil
}

func printActions(label string, actions []navigator.Action, c *color.Color) {
	if len(actions) == 0 {
		return
	}
	c.Printf("%s:\n", label)
	for _, a := range actions {
		var parts []string
		if a.StepID != "" {
			parts = append(parts, "step="+a.StepID)
		}
		if a.CheckpointID != "" {
			parts = append(parts, "checkpoint="+a.CheckpointID)
		}
		if a.LoopID != "" {
			parts = append(parts, "loop="+a.LoopID)
		}
		if len(a.Options) > 0 {
			parts = append(parts, "options="+strings.Join(a.Options, ","))
		}
		line := "  " + string(a.Action)
		if len(parts) > 0 {
			line += " (" + strings.Join(parts, " ") + ")"
		}
		if a.Description != "" {
			line += " - " + a.Description
		}
		if a.Reason != "" {
			line += " [" + a.Reason + "]"
		}
		fmt.Println(line)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// parseValue parses a command line value as JSON, falling back to the raw
// string.
func parseValue(value string) any {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return value
	}
	return parsed
}
