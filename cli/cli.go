package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// ErrRunsFailed is returned when a procedure did not succeed or an API check
// failed.
var ErrRunsFailed = errors.New("acceptance runs failed")

type options struct {
	configPath string
	envFile    string
	all        bool
	suitePath  string
	baseURL    string
}

var opts = options{envFile: ".env"}

var rootCommand = &cobra.Command{
	Use:           "acceptance",
	Short:         "End-to-end acceptance runner",
	Long:          "Drives the web frontend through a real browser and checks the backend APIs. Every run produces a PDF report with a step log and a summary.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCommand = &cobra.Command{
	Use:   "run [procedure...]",
	Short: "Runs browser procedures, one report per procedure",
	Long:  "Runs the named procedures in order, or every procedure with --all. See `list` for the available names.",
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := selectProcedures(args, opts.all)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return a.runProcedures(cmd.Context(), cmd.OutOrStdout(), procs)
	},
}

var apiCommand = &cobra.Command{
	Use:   "api",
	Short: "Runs the API check suite and writes its report",
	Long:  "Runs a data-driven suite of HTTP checks. Without --suite the configured suite or the built-in auth service suite is used.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return a.runChecks(cmd.Context(), cmd.OutOrStdout(), opts.suitePath, opts.baseURL)
	},
}

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "Lists the available procedures",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listProcedures(cmd.OutOrStdout())
	},
}

func init() {
	rootCommand.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default: acceptance.yaml in ./config or .)")
	rootCommand.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config; missing files are ignored")
	runCommand.Flags().BoolVar(&opts.all, "all", false, "run every procedure")
	apiCommand.Flags().StringVar(&opts.suitePath, "suite", "", "check suite file (.yaml, .yml or .json)")
	apiCommand.Flags().StringVar(&opts.baseURL, "base-url", "", "base URL overriding the suite and api.auth_url")

	rootCommand.AddCommand(runCommand, apiCommand, listCommand)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCommand.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
