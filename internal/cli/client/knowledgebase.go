package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// BuildResult represents the knowledge base build response.
type BuildResult struct {
	ChunkCount int `json:"chunk_count"`
	Errors     []struct {
		SourceID string `json:"source_id"`
		Reason   string `json:"reason"`
	} `json:"errors,omitempty"`
}

// StatusResult represents the knowledge base status response.
type StatusResult struct {
	Built      bool `json:"built"`
	ChunkCount int  `json:"chunk_count"`
}

// SearchResult represents one retrieved chunk.
type SearchResult struct {
	Content  string `json:"content"`
	Metadata struct {
		SourceID    string `json:"source_id"`
		ChunkIndex  int    `json:"chunk_index"`
		TotalChunks int    `json:"total_chunks"`
	} `json:"metadata"`
	Distance float32 `json:"distance"`
}

// BuildCmd creates the knowledge base build command.
func BuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the session's knowledge base",
		Long:  "Chunks and embeds every uploaded document plus the target page, replacing any previous index contents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Post("/knowledge-base/build", nil)
			if err != nil {
				return err
			}

			var result BuildResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			fmt.Printf("Knowledge base built: %d chunks indexed\n", result.ChunkCount)
			for _, e := range result.Errors {
				fmt.Printf("  skipped %s: %s\n", e.SourceID, e.Reason)
			}
			return nil
		},
	}
}

// StatusCmd creates the knowledge base status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session's knowledge base status",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Get("/knowledge-base/status")
			if err != nil {
				return err
			}

			var result StatusResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			if result.Built {
				fmt.Printf("Built: %d chunks indexed\n", result.ChunkCount)
			} else {
				fmt.Println("Not built.")
			}
			return nil
		},
	}
}

// ClearCmd creates the knowledge base clear command.
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the session's knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := apiClient.Delete("/knowledge-base"); err != nil {
				return err
			}
			fmt.Println("Knowledge base cleared.")
			return nil
		},
	}
}

// SearchCmd creates the similarity search command.
func SearchCmd() *cobra.Command {
	var nResults int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the session's knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Post("/search", map[string]interface{}{
				"query":     args[0],
				"n_results": nResults,
			})
			if err != nil {
				return err
			}

			var result struct {
				Results []SearchResult `json:"results"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result.Results)
			}
			if len(result.Results) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for i, r := range result.Results {
				fmt.Printf("%d. %s (chunk %d/%d, distance %.4f)\n   %s\n",
					i+1, r.Metadata.SourceID, r.Metadata.ChunkIndex+1, r.Metadata.TotalChunks, r.Distance, truncate(r.Content, 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&nResults, "limit", "n", 5, "Maximum number of results")
	return cmd
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
