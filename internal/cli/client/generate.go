package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// TestCaseItem represents one generated test case.
type TestCaseItem struct {
	TestID         string   `json:"test_id"`
	Feature        string   `json:"feature"`
	TestScenario   string   `json:"test_scenario"`
	TestType       string   `json:"test_type"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	GroundedIn     []string `json:"grounded_in"`
}

// CasesCmd creates the test case generation command.
func CasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cases <query>",
		Short: "Generate QA test cases for a feature",
		Long:  "Asks the completion model for structured test cases grounded in the session's knowledge base.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Post("/generate/test-cases", map[string]string{"query": args[0]})
			if err != nil {
				return err
			}

			var result struct {
				TestCases []TestCaseItem `json:"test_cases"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result.TestCases)
			}
			for _, tc := range result.TestCases {
				fmt.Printf("%s [%s] %s\n", tc.TestID, tc.TestType, tc.TestScenario)
				for i, step := range tc.Steps {
					fmt.Printf("  %d. %s\n", i+1, step)
				}
				fmt.Printf("  Expected: %s\n\n", tc.ExpectedResult)
			}
			return nil
		},
	}
}

// ScriptCmd creates the Selenium script generation command.
func ScriptCmd() *cobra.Command {
	var caseFile string
	var htmlFile string
	var outFile string

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Generate a Selenium script for a test case",
		Long:  "Reads a test case from a JSON file (as produced by 'cases --output') and asks the completion model for a runnable Python Selenium script.",
		RunE: func(cmd *cobra.Command, args []string) error {
			caseData, err := os.ReadFile(caseFile)
			if err != nil {
				return fmt.Errorf("failed to read test case file: %w", err)
			}

			var testCase TestCaseItem
			if err := json.Unmarshal(caseData, &testCase); err != nil {
				return fmt.Errorf("failed to parse test case file: %w", err)
			}

			body := map[string]interface{}{"test_case": testCase}
			if htmlFile != "" {
				htmlData, err := os.ReadFile(htmlFile)
				if err != nil {
					return fmt.Errorf("failed to read html file: %w", err)
				}
				body["html"] = string(htmlData)
			}

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Post("/generate/script", body)
			if err != nil {
				return err
			}

			var result struct {
				Script string `json:"script"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(result.Script), 0644); err != nil {
					return fmt.Errorf("failed to write script: %w", err)
				}
				fmt.Printf("Wrote %s\n", outFile)
				return nil
			}
			fmt.Println(result.Script)
			return nil
		},
	}

	cmd.Flags().StringVarP(&caseFile, "case", "c", "", "Path to a test case JSON file (required)")
	cmd.Flags().StringVar(&htmlFile, "html", "", "Path to an HTML file overriding the session's stored page")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the script to a file instead of stdout")
	_ = cmd.MarkFlagRequired("case")

	return cmd
}
