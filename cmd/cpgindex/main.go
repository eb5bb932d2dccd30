// Command cpgindex is the orchestrator CLI: it drives symbol indexing over
// every supplied package followed by call-graph analysis over every
// supplied package. Built around cobra since the orchestrator exposes more
// than one subcommand (`index`, `doctor`).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jcpg/internal/analyzerclient"
	"jcpg/internal/orchestrate"
	"jcpg/internal/pkgspec"
	"jcpg/internal/progressx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cpgindex",
		Short: "Extract and incrementally index a JVM call graph into a SQLite store",
	}
	root.AddCommand(newIndexCmd(), newDoctorCmd())
	return root
}

func newIndexCmd() *cobra.Command {
	var (
		dbPath      string
		init        bool
		limit       int
		domains     []string
		analyzerURL string
		packagesArg []string
		localArg    []string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run the indexing + analysis pipeline over one or more packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parsePackages(packagesArg, localArg)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return fmt.Errorf("at least one --package is required")
			}

			cfg := orchestrate.RunConfig{
				StorePath:   dbPath,
				Init:        init,
				Limit:       limit,
				Domains:     domains,
				AnalyzerURL: analyzerURL,
				Packages:    specs,
				Verbose:     verbose,
			}

			prog := progressx.New(verbose)
			result, err := orchestrate.Run(cmd.Context(), cfg, prog)
			if err != nil {
				return err
			}

			failed := result.Failed()
			if len(failed) > 0 {
				fmt.Fprintf(os.Stderr, "failed packages: %s\n", strings.Join(failed, ", "))
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file")
	cmd.Flags().BoolVar(&init, "init", false, "Drop and recreate all tables before running")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum classes per package (requires --init; for tests)")
	cmd.Flags().StringSliceVar(&domains, "domains", nil, "FQN prefixes to restrict analysis to (empty = no filter)")
	cmd.Flags().StringVar(&analyzerURL, "analyzer-url", "http://127.0.0.1:8971", "Base URL of the running cpganalyzer process")
	cmd.Flags().StringArrayVar(&packagesArg, "package", nil, "name:classesDir[:sourcesDir] (repeatable)")
	cmd.Flags().StringSliceVar(&localArg, "local", nil, "Package names (from --package) that are part of the project under analysis")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print detailed progress")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func newDoctorCmd() *cobra.Command {
	var analyzerURL string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check readiness of the configured cpganalyzer process",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			client := analyzerclient.New(analyzerURL, 5*time.Second)
			health, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("analyzer at %s is not ready: %w", analyzerURL, err)
			}
			fmt.Printf("%s: %s (version %s)\n", health.Service, health.Status, health.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&analyzerURL, "analyzer-url", "http://127.0.0.1:8971", "Base URL of the running cpganalyzer process")
	return cmd
}

// parsePackages turns repeated --package name:classesDir[:sourcesDir]
// values, plus --local names, into PackageSpecs.
func parsePackages(raw []string, local []string) ([]pkgspec.PackageSpec, error) {
	isLocal := make(map[string]bool, len(local))
	for _, name := range local {
		isLocal[name] = true
	}

	specs := make([]pkgspec.PackageSpec, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid --package %q (want name:classesDir[:sourcesDir])", entry)
		}
		spec := pkgspec.PackageSpec{
			Name:       parts[0],
			ClassesDir: parts[1],
			IsLocal:    isLocal[parts[0]],
		}
		if len(parts) == 3 {
			spec.SourcesDir = parts[2]
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
