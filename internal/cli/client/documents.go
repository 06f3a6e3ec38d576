package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// DocumentItem represents one uploaded document in API responses.
type DocumentItem struct {
	SourceID string `json:"source_id"`
	Type     string `json:"type"`
	Chars    int    `json:"chars"`
}

// HTMLUploadResult represents the response to storing a target page.
type HTMLUploadResult struct {
	Chars int `json:"chars"`
}

// UploadCmd creates the document upload command.
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload support documents to the session",
		Long:  "Uploads one or more support documents (txt, md, json, html, pdf) for knowledge base ingestion.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args, outputJSON)
		},
	}
	return cmd
}

func runUpload(cmd *cobra.Command, files []string, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	uploaded := make([]DocumentItem, 0, len(files))
	for _, file := range files {
		resp, err := apiClient.PostFile("/documents", file)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", file, err)
		}

		var item DocumentItem
		if err := json.Unmarshal(resp.Data, &item); err != nil {
			return fmt.Errorf("failed to parse response for %s: %w", file, err)
		}
		uploaded = append(uploaded, item)
	}

	if outputJSON {
		return printJSON(uploaded)
	}
	for _, item := range uploaded {
		fmt.Printf("Uploaded %s (%d chars extracted)\n", item.SourceID, item.Chars)
	}
	return nil
}

// DocsCmd creates the document list command.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List the session's uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocs(cmd, outputJSON)
		},
	}
	return cmd
}

func runDocs(cmd *cobra.Command, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/documents")
	if err != nil {
		return err
	}

	var docs []DocumentItem
	if err := json.Unmarshal(resp.Data, &docs); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(docs)
	}
	if len(docs) == 0 {
		fmt.Println("No documents uploaded.")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%-40s %-12s %d chars\n", d.SourceID, d.Type, d.Chars)
	}
	return nil
}

// HTMLCmd creates the target page command group.
func HTMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "html",
		Short: "Manage the session's target HTML page",
	}
	cmd.AddCommand(htmlSetCmd())
	cmd.AddCommand(htmlShowCmd())
	return cmd
}

func htmlSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <file>",
		Short: "Upload the target HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.PostFile("/html", args[0])
			if err != nil {
				return err
			}

			var result HTMLUploadResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			fmt.Printf("Stored target page (%d chars of visible text)\n", result.Chars)
			return nil
		},
	}
}

func htmlShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the session's stored target page",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Get("/html")
			if err != nil {
				return err
			}

			var result struct {
				HTML string `json:"html"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Println(result.HTML)
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
