// Publika ctl — инструмент командной строки для операций над
// schedules и queue jobs.
//
// Использование:
//
//	publika-ctl [--db-url DSN] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	schedule  Управление schedules
//	job       Управление queue jobs
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Publika/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var dbURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "publika-ctl",
		Short:         "Publika ctl — publish scheduling operations tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", os.Getenv("DB_URL"), "PostgreSQL connection string")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	storeFn := func(ctx context.Context) (*cli.Store, error) { return cli.OpenStore(ctx, dbURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewScheduleCmd(storeFn, outputFn),
		cli.NewJobCmd(storeFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
