package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/servactory"
	"github.com/roach88/servactory/internal/harness"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter   string // scenario filter (glob pattern)
	Database string // journal for journal_count assertions
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <services-dir> <scenarios-dir>",
		Short: "Run YAML scenarios against CUE-declared services",
		Long: `Run scenario files against the services declared in a CUE directory.

Services are built with placeholder bindings: actions do nothing and must
predicates pass, so scenarios exercise the declarative contract (inputs,
defaults, conditions, trace shape) rather than the Go code behind it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  servactory test ./services ./scenarios
  servactory test ./services ./scenarios --filter "order-*"
  servactory test ./services ./scenarios --db ./journal.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database for journal_count assertions")

	return cmd
}

func runTests(opts *TestOptions, servicesDir, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	if _, err := os.Stat(scenariosDir); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	fw, err := opts.framework()
	if err != nil {
		return err
	}
	services, err := fw.LoadDir(servicesDir, servactory.Bindings{Placeholders: true})
	if err != nil {
		return outputProblems(formatter, "Loading services failed", problemsOf(err), ExitCommandError)
	}

	hopts := []harness.Option{harness.WithLogger(fw.Logger())}
	if opts.Database != "" {
		// Open would create a missing database.
		if _, err := os.Stat(opts.Database); err != nil {
			return WrapExitError(ExitCommandError, "journal database not found", err)
		}
		j, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		hopts = append(hopts, harness.WithJournal(j))
	}

	h := harness.New(hopts...)
	for _, name := range ir.SortedKeys(services) {
		if err := h.Register(services[name]); err != nil {
			return WrapExitError(ExitCommandError, "failed to register services", err)
		}
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(h, file)
		formatter.VerboseLog("%s: pass=%v", sr.Name, sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeTestText(formatter, result)
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func runScenario(h *harness.Harness, file string) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{err.Error()}}
	}
	name = scenario.Name

	res, err := h.Run(context.Background(), scenario)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{err.Error()}}
	}
	return ScenarioResult{Name: name, Pass: res.Pass, Errors: res.Errors}
}

// findScenarioFiles returns the YAML files under dir in lexical order.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func writeTestText(formatter *OutputFormatter, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return
	}
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(formatter.Writer, "    %s\n", e)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
