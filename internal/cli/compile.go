package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/servactory"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledService is the compile output of one service.
type CompiledService struct {
	Info        servactory.Info `json:"info"`
	Fingerprint string          `json:"fingerprint"`
}

// CompilationResult holds every compiled service, sorted by name.
type CompilationResult struct {
	Services []CompiledService `json:"services"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <services-dir>",
		Short: "Build CUE service definitions and print their info",
		Long: `Load the CUE service definitions in a directory, build every service
and print its info: inputs, internals, outputs and stages, plus a
fingerprint that changes whenever the declared surface changes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	fw, err := opts.framework()
	if err != nil {
		return err
	}

	services, err := fw.LoadDir(dir, servactory.Bindings{Placeholders: true})
	if err != nil {
		return outputProblems(formatter, "Compilation failed", problemsOf(err), ExitCommandError)
	}

	result, err := compileResult(services)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint services", err)
	}
	for _, s := range result.Services {
		formatter.VerboseLog("Compiled service: %s (%s)", s.Info.Service, s.Fingerprint)
	}

	if opts.Output != "" {
		if err := writeResult(result, opts.Output); err != nil {
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func compileResult(services map[string]*servactory.Service) (*CompilationResult, error) {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &CompilationResult{Services: make([]CompiledService, 0, len(names))}
	for _, name := range names {
		info := services[name].Info()
		fp, err := info.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		result.Services = append(result.Services, CompiledService{Info: info, Fingerprint: fp})
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d service(s)\n\n", len(result.Services))
	for _, s := range result.Services {
		actions := 0
		for _, st := range s.Info.Stages {
			actions += len(st.Actions)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d input(s), %d internal(s), %d output(s), %d stage(s), %d action(s)\n",
			s.Info.Service, len(s.Info.Inputs), len(s.Info.Internals), len(s.Info.Outputs), len(s.Info.Stages), actions)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote service info to %s\n", outputFile)
	}
	return nil
}

// writeResult writes the compilation result as indented JSON.
func writeResult(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling info: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
