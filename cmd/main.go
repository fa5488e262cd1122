package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "formcoach",
		Short: "FormCoach - sports technique scoring and coaching insights",
		Long: `FormCoach scores athletic performances per sport, generates coaching
insights and keeps a history of analysed sessions and athlete profiles.

Commands:
  serve     Run the HTTP API (default)
  migrate   Apply or roll back the SQLite schema
  sports    Print the sport pattern registry`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSportsCommand())
	return root
}
