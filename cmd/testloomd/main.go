package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testloom-ai/testloom/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "testloomd",
		Short: "TestLoom daemon",
		Long:  "TestLoom daemon for running the QA test generation API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
