package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testloom-ai/testloom/internal/cli"
	"github.com/testloom-ai/testloom/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "testloom",
		Short: "TestLoom CLI - generate QA test cases and Selenium scripts",
		Long: `TestLoom CLI drives a testloomd server: upload support documents and a
target page, build the session's knowledge base, then generate test
cases and Selenium scripts.

Environment variables:
  TESTLOOM_API_URL   API base URL (default: http://localhost:8080)
  TESTLOOM_SESSION   Session id (default: "default")`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("session", "", "Session id (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.HTMLCmd())
	rootCmd.AddCommand(client.BuildCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.ClearCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.CasesCmd())
	rootCmd.AddCommand(client.ScriptCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
