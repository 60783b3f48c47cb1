package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sovdscope/internal/version"
)

// Execute runs the CLI with the provided args and manager.
func Execute(args []string, manager Manager, out, errOut io.Writer) int {
	cmd := NewRootCommand(manager, out, errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return ExitInvalidUsage
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

// NewRootCommand builds the root CLI command tree. Running the binary with
// no subcommand serves the console.
func NewRootCommand(manager Manager, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "sovdscope",
		Short:         "browser-based diagnostic console for SOVD servers",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return manager.Serve(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().Bool("json", false, "output JSONL")

	root.AddCommand(newServeCommand(manager))
	root.AddCommand(newCheckCommand(manager))
	root.AddCommand(newProfilesCommand(manager))
	root.AddCommand(newVersionCommand())

	return root
}

type usageError struct {
	err error
}

func (u *usageError) Error() string {
	if u.err == nil {
		return "invalid usage"
	}
	return u.err.Error()
}

type runtimeError struct {
	err error
}

func (r *runtimeError) Error() string {
	if r.err == nil {
		return "runtime error"
	}
	return r.err.Error()
}

func newServeCommand(manager Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the console UI and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := manager.Serve(cmd.Context()); err != nil {
				return writeError(cmd, err)
			}
			return nil
		},
	}
}

func newCheckCommand(manager Manager) *cobra.Command {
	check := &cobra.Command{
		Use:   "check <url>",
		Short: "probe a diagnostic server",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return &usageError{err: fmt.Errorf("requires the server url")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			basePath, _ := cmd.Flags().GetString("base-path")
			result, err := manager.Check(cmd.Context(), args[0], basePath)
			if err != nil {
				return writeError(cmd, err)
			}
			return writeEvent(cmd, Event{
				Type:    "result",
				Message: fmt.Sprintf("%s %s (%s) reachable", result.Name, result.Version, result.RosDistro),
				Data:    result,
			})
		},
	}
	check.Flags().String("base-path", "", "API base path prefix")
	return check
}

func newProfilesCommand(manager Manager) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "manage connection profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list configured profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := manager.ProfileList(cmd.Context())
			if err != nil {
				return writeError(cmd, err)
			}
			jsonOutput, _ := cmd.Flags().GetBool("json")
			if jsonOutput {
				return writeEvent(cmd, Event{Type: "result", Data: list})
			}
			for _, p := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", p.Name, p.URL, p.BasePath)
			}
			return nil
		},
	}

	profilesCmd.AddCommand(listCmd)
	return profilesCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			jsonOutput, _ := cmd.Flags().GetBool("json")
			if jsonOutput {
				return writeEvent(cmd, Event{Type: "result", Data: info})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sovdscope version %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built: %s\n", info.BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  go: %s\n", info.GoVersion)
			return nil
		},
	}
}

func writeError(cmd *cobra.Command, err error) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		_ = writeEventJSON(cmd, Event{Type: "error", Message: err.Error()})
	}
	return &runtimeError{err: err}
}

func writeEvent(cmd *cobra.Command, event Event) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return writeEventJSON(cmd, event)
	}
	if event.Message != "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), event.Message)
		return err
	}
	return nil
}

func writeEventJSON(cmd *cobra.Command, event Event) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	return encoder.Encode(event)
}
