package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/servactory"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Args     string
	ArgsFile string
}

// CheckResult is the JSON payload of a check.
type CheckResult struct {
	Service   string `json:"service"`
	Valid     bool   `json:"valid"`
	Attribute string `json:"attribute,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <services-dir> <service>",
		Short: "Validate JSON arguments against a service's inputs",
		Long: `Validate JSON arguments against the inputs of a CUE-declared service
without running any action.

Must predicates are bound to placeholders that always pass, so only the
declarative rules (types, required, inclusion, options) are checked.

Examples:
  servactory check ./services PlaceOrder --args '{"ids":["a"],"quantity":2}'
  servactory check ./services PlaceOrder --args-file order.json --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "arguments as a JSON object")
	cmd.Flags().StringVar(&opts.ArgsFile, "args-file", "", "read arguments from a JSON file")
	cmd.MarkFlagsMutuallyExclusive("args", "args-file")

	return cmd
}

func runCheck(opts *CheckOptions, dir, name string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	raw := []byte(opts.Args)
	if opts.ArgsFile != "" {
		data, err := os.ReadFile(opts.ArgsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read arguments file", err)
		}
		raw = data
	}
	args, err := ir.DecodeArgs(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments JSON", err)
	}

	fw, err := opts.framework()
	if err != nil {
		return err
	}
	services, err := fw.LoadDir(dir, servactory.Bindings{Placeholders: true})
	if err != nil {
		return outputProblems(formatter, "Loading services failed", problemsOf(err), ExitCommandError)
	}
	svc, ok := services[name]
	if !ok {
		return WrapExitError(ExitCommandError, fmt.Sprintf("service %q not found in %s", name, dir), nil)
	}

	formatter.VerboseLog("Checking %d argument(s) against %s", len(args), name)

	verr := svc.ValidateInputs(args)
	if verr == nil {
		if formatter.Format == "json" {
			return formatter.Success(CheckResult{Service: name, Valid: true})
		}
		fmt.Fprintf(formatter.Writer, "✓ Arguments valid for %s\n", name)
		return nil
	}

	f, ok := outcome.ToFailure(verr)
	if !ok {
		return WrapExitError(ExitCommandError, "input validation errored", verr)
	}
	attr, _ := f.Meta["attribute"].(string)
	if formatter.Format == "json" {
		_ = formatter.Error(f.Type, f.Message, CheckResult{Service: name, Attribute: attr, Message: f.Message})
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", f.Message)
	}
	return NewExitError(ExitFailure, f.Message)
}
