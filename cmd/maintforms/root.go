package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/artpar/maintforms/app"
	"github.com/artpar/maintforms/bootstrap"
	"github.com/artpar/maintforms/domain/field"
	"github.com/spf13/cobra"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var (
	// Global flags
	cfgFile string
	actor   string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maintforms",
	Short: "Field configuration service for maintenance modules",
	Long: `maintforms manages the field schema of the maintenance modules
(equipment, workorders, inventory, scheduling, dashboard).

Each module ships system fields; administrators add, edit, reorder and
remove custom fields at runtime. Forms are generated from the merged schema.

Quick start:
  maintforms serve                      # Start the HTTP API
  maintforms fields list equipment      # Show a module's fields
  maintforms fields add equipment --name warrantyMonths --label "Warranty (months)" --type number --min 0`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "maintforms.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "name recorded in the audit trail")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write logs to stderr")
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// openApp initializes storage and services for a one-shot CLI command.
// Logs are discarded unless --verbose is set.
func openApp(cmd *cobra.Command) (*bootstrap.App, context.Context, error) {
	logOut := io.Discard
	if verbose {
		logOut = cmd.ErrOrStderr()
	}

	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  logOut,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx := app.WithActor(cmd.Context(), actor)
	return a, ctx, nil
}

func parseModuleArg(s string) (field.Module, error) {
	m, err := field.ParseModule(s)
	if err != nil {
		return "", fmt.Errorf("%w (known: %v)", err, field.AllModules())
	}
	return m, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
