package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/servactory"
	"github.com/roach88/servactory/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Services int       `json:"services"`
	Errors   []Problem `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <services-dir>",
		Short: "Report definition errors in CUE service definitions",
		Long: `Validate the CUE service definitions in a directory.

Reports every malformed definition, naming problem and inheritance cycle,
then builds the services to catch declaration errors such as a required
input with a default or an unknown option.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	fw, err := opts.framework()
	if err != nil {
		return err
	}

	result, loadErrs := compiler.LoadDir(dir, compiler.LoadModeCollectAll)
	if result == nil {
		return outputProblems(formatter, "Validation failed", problemsOf(errors.Join(loadErrs...)), ExitCommandError)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	// Set validation of a partial load would report parents that merely
	// failed to compile as unknown.
	problems := problemsOf(errors.Join(loadErrs...))
	if len(problems) == 0 {
		problems = validationProblems(compiler.Validate(result.Services))
	}

	if len(problems) == 0 {
		for _, def := range result.Services {
			formatter.VerboseLog("Building service: %s", def.Name)
		}
		if _, err := fw.LoadDir(dir, servactory.Bindings{Placeholders: true}); err != nil {
			problems = append(problems, problemsOf(err)...)
		}
	}

	if len(problems) > 0 {
		return outputProblems(formatter, "Validation failed", problems, ExitFailure)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Services: len(result.Services)})
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d service(s) valid\n", len(result.Services))
	return nil
}
